package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mcpchat/internal/application/port/input"
	"mcpchat/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

type queryRunner interface {
	RunQuery(ctx context.Context, text string) (*input.QueryResult, error)
}

func queryCmd(opts *rootOptions) *cobra.Command {
	var showTranscript bool

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a single query and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, nil, "query")
			if err != nil {
				return err
			}
			console := userinteraction.NewConsoleUserInteraction()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := openSession(ctx, cfg, console)
			if err != nil {
				console.ShowError(err)
				return err
			}
			defer container.Close()

			result, err := container.RunQuery(ctx, strings.Join(args, " "))
			if err != nil {
				console.ShowError(err)
				return err
			}

			if showTranscript {
				console.ShowAnswer(result.Transcript)
			} else {
				console.ShowAnswer(result.FinalText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTranscript, "transcript", true, "print tool call markers along with the answer")
	return cmd
}
