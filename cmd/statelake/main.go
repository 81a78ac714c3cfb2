// Command statelake runs lake scenarios and inspects state documents and
// write journals.
package main

import (
	"os"

	"github.com/roach88/statelake/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
