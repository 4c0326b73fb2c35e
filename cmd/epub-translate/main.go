package main

import (
	"os"

	"github.com/nerdneilsfield/epub-translate/internal/cli"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	root := cli.NewRootCommand(version, commit, buildDate)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
