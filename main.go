package main

import (
	"os"

	"github.com/babelcloud/mediaprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
