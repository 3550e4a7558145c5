// Command timeline compiles, drives and inspects temporal scenarios.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/timeline/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		// Commands that already reported through the formatter silence
		// cobra; everything else is printed here.
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
