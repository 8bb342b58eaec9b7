// Package command implements the 9pfs command-line interface using
// cobra, in the same one-command-per-subcommand style dittofs's cmd/dfs
// package uses, scaled down to what a synthetic resource server needs:
// no daemon mode, no config file, no telemetry.
package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ninelib/ninep/nsfs"
	"github.com/ninelib/ninep/ninep"
	"github.com/ninelib/ninep/transport"
)

var (
	network string
	address string
	seed    []string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "9pfs",
	Short: "Serve an in-memory resource tree over 9P2000.x",
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&network, "network", "tcp", `transport to listen on: "tcp" or "unix"`)
	rootCmd.Flags().StringVar(&address, "address", "127.0.0.1:5640", "address to listen on (host:port for tcp, path for unix)")
	rootCmd.Flags().StringArrayVar(&seed, "file", nil, "name=content pair to seed into the root directory; may be repeated")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the 9pfs command-line interface.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	tree := nsfs.NewTree()
	root := tree.Root()
	for _, spec := range seed {
		name, content := splitSeed(spec)
		if _, err := tree.MountData(root, name, []byte(content), 0644); err != nil {
			return err
		}
	}

	srv := ninep.NewServer(tree)
	srv.Logger = log

	var ep transport.Endpoint
	switch network {
	case "unix":
		ep = transport.UnixEndpoint(address)
	default:
		ep = transport.TCPEndpoint(address)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := ep.Listen(ctx)
	if err != nil {
		return err
	}
	defer ln.Close()

	log.Infof("listening on %s", ep)
	return srv.Serve(ctx, ln)
}

func splitSeed(spec string) (name, content string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '=' {
			return spec[:i], spec[i+1:]
		}
	}
	return spec, ""
}
