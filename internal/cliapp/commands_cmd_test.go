package cliapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_JSONListsKnownSubcommands(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"--output", "json", "commands"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	var entries []commandEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))

	paths := make(map[string]bool, len(entries))
	for _, e := range entries {
		paths[e.Path] = true
	}
	assert.True(t, paths["dag"])
	assert.True(t, paths["errors"])
	assert.True(t, paths["cache stats"])
	assert.True(t, paths["cache clear"])
}

func TestCommands_FilterNarrowsResults(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"--output", "json", "commands", "--filter", "cache"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	var entries []commandEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Contains(t, e.Path, "cache")
	}
}

func TestCommands_DagHasMaxDepthFlag(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"--output", "json", "commands", "--filter", "dag"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	var entries []commandEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	require.Len(t, entries, 1)

	found := false
	for _, f := range entries[0].Flags {
		if f.Name == "max-depth" {
			found = true
		}
	}
	assert.True(t, found, "dag command should expose a max-depth flag")
}

func TestCommands_TableOutputHasPathAndShort(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"commands", "--filter", "dag"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)
	assert.Contains(t, output, "dag")
}
