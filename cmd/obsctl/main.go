// Package main is the entry point for obsctl, the observability engine's
// command-line client.
package main

import (
	"os"

	"obs-engine/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Execute())
}
