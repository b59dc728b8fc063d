package main

import (
	"fmt"
	"os"

	"github.com/vk/gridsim/internal/cli"
)

// main is the entrypoint for the gridsim binary.
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
