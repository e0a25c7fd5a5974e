// Command layerhub resolves names across layered directories and serves them.
package main

import (
	"fmt"
	"os"

	"github.com/CageChen/layerhub/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
