package cliapp

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["httpStatus"] = apiErr.HTTPStatus
				errObj["code"] = apiErr.Code
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		output  string
	)

	rootCmd := &cobra.Command{
		Use:           "obsctl",
		Short:         "Command-line client for the observability engine",
		Long:          "obsctl talks to a running observability engine server and prints lineage, test, and cache data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("server") {
				if v := os.Getenv("OBSCTL_SERVER"); v != "" {
					server = v
				}
			}
			return validateOutputFormat(output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&server, "server", "http://localhost:8080", "observability engine server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	newClient := func() *Client { return NewClient(server, timeout) }

	rootCmd.AddCommand(newDagCmd(newClient, &output))
	rootCmd.AddCommand(newErrorsCmd(newClient, &output))
	rootCmd.AddCommand(newCacheCmd(newClient, &output))
	rootCmd.AddCommand(newCommandsCmd(&output))

	return rootCmd
}
