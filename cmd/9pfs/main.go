// Command 9pfs serves a synthetic, in-memory resource tree over
// 9P2000.x, for testing clients or exercising the protocol without a
// real backing filesystem.
package main

import (
	"fmt"
	"os"

	"github.com/ninelib/ninep/cmd/9pfs/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "9pfs: %v\n", err)
		os.Exit(1)
	}
}
