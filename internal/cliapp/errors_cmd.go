package cliapp

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"obs-engine/internal/httpapi"
)

func newErrorsCmd(newClient func() *Client, output *string) *cobra.Command {
	var (
		testType         string
		statusFilter     string
		fresh            bool
		currentSnapshot  string
		previousSnapshot string
	)

	cmd := &cobra.Command{
		Use:   "errors <id>",
		Short: "Show the test report for a node",
		Example: `  obsctl errors model.my_project.orders
  obsctl errors model.my_project.orders --type freshness --status fail`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			client := newClient()

			q := url.Values{}
			if testType != "" {
				q.Set("testType", testType)
			}
			if statusFilter != "" {
				q.Set("statusFilter", statusFilter)
			}
			if fresh {
				q.Set("fresh", "true")
			}
			if currentSnapshot != "" {
				q.Set("currentSnapshot", currentSnapshot)
			}
			if previousSnapshot != "" {
				q.Set("previousSnapshot", previousSnapshot)
			}

			var resp httpapi.ErrorsEnvelope
			if err := client.Get("/errors/"+id, q, &resp); err != nil {
				return err
			}
			return renderErrors(os.Stdout, *output, resp)
		},
	}

	cmd.Flags().StringVar(&testType, "type", "", "filter by test type: freshness, volume, quality, other")
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status: pass, fail, unknown")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the server-side cache")
	cmd.Flags().StringVar(&currentSnapshot, "current-snapshot", "", "label of a snapshot to use as the current artifact set")
	cmd.Flags().StringVar(&previousSnapshot, "previous-snapshot", "", "label of a snapshot to compare against")

	return cmd
}

func renderErrors(w *os.File, output string, resp httpapi.ErrorsEnvelope) error {
	if output == "json" {
		return printJSON(w, resp)
	}
	if resp.Data == nil {
		fmt.Fprintln(w, "no report available")
		return nil
	}

	fmt.Fprintf(w, "node\t%s\n", resp.Data.NodeID)
	fmt.Fprintf(w, "total tests\t%d\n", resp.Data.TotalTests)
	fmt.Fprintf(w, "failing tests\t%d\n", resp.Data.FailingTests)
	fmt.Fprintln(w)

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "id\tname\ttype\tstatus\tseverity")
	for _, t := range resp.Data.Tests {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Type, t.Status, t.Severity)
	}
	return tw.Flush()
}
