package cliapp

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandEntry describes a single CLI command for introspection output.
type commandEntry struct {
	Path    string      `json:"path"`
	Short   string      `json:"short"`
	Example string      `json:"example,omitempty"`
	Args    string      `json:"args,omitempty"`
	Flags   []flagEntry `json:"flags,omitempty"`
}

// flagEntry describes a single CLI flag for introspection output.
type flagEntry struct {
	Name    string `json:"name"`
	Short   string `json:"shorthand,omitempty"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
	Usage   string `json:"usage,omitempty"`
}

func newCommandsCmd(output *string) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List available obsctl commands with their flags",
		Long:  "Introspects the command tree without contacting the server. Useful for discovering obsctl's surface in a single call.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := walkCommands(cmd.Root(), "")
			if filter != "" {
				needle := strings.ToLower(filter)
				filtered := entries[:0:0]
				for _, e := range entries {
					if strings.Contains(strings.ToLower(e.Path+" "+e.Short), needle) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if *output == "json" {
				return printJSON(os.Stdout, entries)
			}

			tw := newTabWriter(os.Stdout)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Path, e.Short)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "substring search across command names and descriptions")
	return cmd
}

func walkCommands(cmd *cobra.Command, parentPath string) []commandEntry {
	var entries []commandEntry
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		childPath := child.Name()
		if parentPath != "" {
			childPath = parentPath + " " + child.Name()
		}
		if child.HasSubCommands() {
			entries = append(entries, walkCommands(child, childPath)...)
			continue
		}

		args := ""
		if useParts := strings.Fields(child.Use); len(useParts) > 1 {
			args = strings.Join(useParts[1:], " ")
		}

		entries = append(entries, commandEntry{
			Path:    childPath,
			Short:   child.Short,
			Example: child.Example,
			Args:    args,
			Flags:   collectFlags(child),
		})
	}
	return entries
}

func collectFlags(cmd *cobra.Command) []flagEntry {
	var flags []flagEntry
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		flags = append(flags, flagEntry{
			Name:    f.Name,
			Short:   f.Shorthand,
			Type:    f.Value.Type(),
			Default: f.DefValue,
			Usage:   f.Usage,
		})
	})
	return flags
}
