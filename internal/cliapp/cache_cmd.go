package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"obs-engine/internal/httpapi"
)

func newCacheCmd(newClient func() *Client, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the server's tiered cache",
	}
	cmd.AddCommand(newCacheStatsCmd(newClient, output))
	cmd.AddCommand(newCacheClearCmd(newClient, output))
	return cmd
}

func newCacheStatsCmd(newClient func() *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit/miss/eviction counters and TTL configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpapi.CacheStatsResponse
			if err := newClient().Get("/cache/stats", nil, &resp); err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, resp)
			}
			tw := newTabWriter(os.Stdout)
			fmt.Fprintf(tw, "entries\t%d\n", resp.Cache.EntryCount)
			fmt.Fprintf(tw, "hits\t%d\n", resp.Performance.Hits)
			fmt.Fprintf(tw, "misses\t%d\n", resp.Performance.Misses)
			fmt.Fprintf(tw, "evictions\t%d\n", resp.Performance.Evictions)
			fmt.Fprintf(tw, "hit rate\t%.2f%%\n", resp.Performance.HitRate*100)
			for layer, count := range resp.Cache.ByLayer {
				fmt.Fprintf(tw, "layer:%s\t%d\n", layer, count)
			}
			return tw.Flush()
		},
	}
}

func newCacheClearCmd(newClient func() *Client, output *string) *cobra.Command {
	var layer string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache, or one of its layers",
		Example: `  obsctl cache clear
  obsctl cache clear --layer warm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := httpapi.CacheClearRequest{Action: "clear-all"}
			if layer != "" {
				req.Action = "clear-layer"
				req.Layer = layer
			}
			var resp httpapi.CacheClearResponse
			if err := newClient().Post("/cache/clear", nil, req, &resp); err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, resp)
			}
			fmt.Printf("cleared %d items (%s)\n", resp.TotalItemsCleared, resp.Action)
			return nil
		},
	}
	cmd.Flags().StringVar(&layer, "layer", "", "clear only this layer: hot, warm, or cold")
	return cmd
}
