package main

import (
	"fmt"
	"os"

	"github.com/fastattackv/apy-launcher/internal/cmd"
)

func main() {
	// Keep panics short for users; the log file has the details
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nOops, something broke: %v\n", r)
			fmt.Fprintln(os.Stderr, "Let the developers know what happened.")
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
