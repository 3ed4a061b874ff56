package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupted runs already print their own summary.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "recode: %v\n", err)
		}
		return 1
	}
	return 0
}
