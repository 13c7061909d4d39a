package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"mcpchat/internal/infrastructure/userinteraction"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func chatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [server]",
		Short: "Interactive chat loop; type 'quit' to exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, args, "chat")
			if err != nil {
				return err
			}
			console := userinteraction.NewConsoleUserInteraction()

			container, err := openSession(cmd.Context(), cfg, console)
			if err != nil {
				console.ShowError(err)
				return err
			}
			defer container.Close()

			console.ShowTools(container.Tools())
			color.New(color.Bold).Println("\nMCP Client Started!")
			color.New(color.Faint).Println("Type your queries or 'quit' to exit.")

			return chatLoop(cmd.Context(), container, console)
		},
	}
}

func chatLoop(ctx context.Context, runner queryRunner, console *userinteraction.ConsoleUserInteraction) error {
	for {
		query, err := console.Prompt(ctx, "Query")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(query, "quit") {
			return nil
		}
		if query == "" {
			continue
		}

		queryCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		result, err := runner.RunQuery(queryCtx, query)
		stop()
		if err != nil {
			console.ShowError(err)
			continue
		}
		console.ShowAnswer(result.Transcript)
	}
}
