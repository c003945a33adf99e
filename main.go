// ABOUTME: Entry point for the cashly CLI
// ABOUTME: Terminal client for signing in to Cashly and keeping the session fresh

package main

import (
	"fmt"
	"os"

	"github.com/AbdelrhmanAbuelnile/Cashly/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
