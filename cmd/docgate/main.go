package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/docgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// the gate verdict is already printed
		if !errors.Is(err, cli.ErrQualityGate) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
