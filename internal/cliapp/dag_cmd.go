package cliapp

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"obs-engine/internal/checks"
	"obs-engine/internal/httpapi"
)

func newDagCmd(newClient func() *Client, output *string) *cobra.Command {
	var (
		maxDepth         int
		fresh            bool
		currentSnapshot  string
		previousSnapshot string
		invalidate       bool
	)

	cmd := &cobra.Command{
		Use:   "dag <id>",
		Short: "Show the lineage view for a node",
		Example: `  obsctl dag model.my_project.orders
  obsctl dag model.my_project.orders --max-depth 3 --output json
  obsctl dag model.my_project.orders --invalidate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			client := newClient()

			if invalidate {
				var resp httpapi.InvalidateResponse
				if err := client.Post("/dag/"+id, url.Values{"action": {"invalidate"}}, nil, &resp); err != nil {
					return err
				}
				return renderInvalidate(os.Stdout, *output, resp)
			}

			q := url.Values{}
			q.Set("maxDepth", strconv.Itoa(maxDepth))
			if fresh {
				q.Set("fresh", "true")
			}
			if currentSnapshot != "" {
				q.Set("currentSnapshot", currentSnapshot)
			}
			if previousSnapshot != "" {
				q.Set("previousSnapshot", previousSnapshot)
			}

			var resp httpapi.LineageEnvelope
			if err := client.Get("/dag/"+id, q, &resp); err != nil {
				return err
			}
			return renderLineage(os.Stdout, *output, resp)
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 100, "maximum traversal depth (clamped to [0,100] by the server)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the server-side cache")
	cmd.Flags().StringVar(&currentSnapshot, "current-snapshot", "", "label of a snapshot to use as the current artifact set")
	cmd.Flags().StringVar(&previousSnapshot, "previous-snapshot", "", "label of a snapshot to compare against")
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "evict every cached entry for this node instead of fetching it")

	return cmd
}

func renderLineage(w *os.File, output string, resp httpapi.LineageEnvelope) error {
	if output == "json" {
		return printJSON(w, resp)
	}

	tw := newTabWriter(w)
	fmt.Fprintf(tw, "node\t%s\n", resp.NodeID)
	fmt.Fprintf(tw, "cached\t%v\n", resp.Cached)
	fmt.Fprintf(tw, "computeTimeMs\t%d\n", resp.ComputeTimeMs)
	fmt.Fprintf(tw, "upstream depth\t%d\n", resp.Data.Depth.Upstream)
	fmt.Fprintf(tw, "downstream depth\t%d\n", resp.Data.Depth.Downstream)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "ANCESTORS")
	printNodeTable(w, resp.Data.Ancestors, resp.Data.ParentDepth)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DESCENDANTS")
	printNodeTable(w, resp.Data.Descendants, resp.Data.ChildDepth)
	return nil
}

func printNodeTable(w *os.File, nodes []*httpapi.LineageNode, depth map[string]int) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "id\tdepth\tkind\tstatus")
	for _, n := range nodes {
		status := "unknown"
		if n.Observability != nil {
			status = worstStatus(n.Observability)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", n.UniqueID, depth[n.UniqueID], n.Kind, status)
	}
	_ = tw.Flush()
}

// worstStatus reduces a node's three broad checks to the single most severe
// status for the table view: fail beats unknown beats pass.
func worstStatus(bc *checks.BroadChecks) string {
	statuses := []checks.Status{bc.Schema.Status, bc.Volume.Status, bc.Freshness.Status}
	worst := checks.StatusPass
	for _, s := range statuses {
		if s == checks.StatusFail {
			return string(checks.StatusFail)
		}
		if s == checks.StatusUnknown {
			worst = checks.StatusUnknown
		}
	}
	return string(worst)
}

func renderInvalidate(w *os.File, output string, resp httpapi.InvalidateResponse) error {
	if output == "json" {
		return printJSON(w, resp)
	}
	fmt.Fprintf(w, "invalidated %d cache entries for %s\n", resp.InvalidatedCount, resp.NodeID)
	return nil
}
