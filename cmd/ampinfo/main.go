// Command ampinfo is a manual smoke-test entrypoint: it opens a single
// local or remote audio stream and prints its merged metadata
// dictionary and decoded stream shape.
package main

import (
	"os"

	"github.com/jmylchreest/ampgo/cmd/ampinfo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
