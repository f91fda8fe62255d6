// Package main provides the entry point for the sshdedit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kevinwang15/sshdedit/cmd/sshdedit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
