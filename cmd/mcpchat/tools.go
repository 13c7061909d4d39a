package main

import (
	"encoding/json"
	"fmt"

	"mcpchat/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

func toolsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools [server]",
		Short: "List the tools the server offers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, args, "tools")
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

			tools := container.Tools()
			if !asJSON {
				console.ShowTools(tools)
				return nil
			}

			data, err := json.MarshalIndent(tools, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print definitions as JSON")
	return cmd
}
