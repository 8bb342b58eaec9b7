// Command 9pget is a small 9P2000.x client: it attaches to a server,
// walks to a path, and either lists a directory or dumps a file's
// contents to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/ninelib/ninep/cmd/9pget/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "9pget: %v\n", err)
		os.Exit(1)
	}
}
