// Package command implements the 9pget command-line interface.
package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ninelib/ninep/p9client"
	"github.com/ninelib/ninep/transport"
	"github.com/ninelib/ninep/wire"
)

var (
	network string
	address string
	uname   string
	aname   string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "9pget <path>",
	Short: "Fetch a file or list a directory from a 9P2000.x server",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.Flags().StringVar(&network, "network", "tcp", `transport to dial: "tcp" or "unix"`)
	rootCmd.Flags().StringVar(&address, "address", "127.0.0.1:5640", "address to dial")
	rootCmd.Flags().StringVar(&uname, "uname", "none", "user name to attach as")
	rootCmd.Flags().StringVar(&aname, "aname", "", "tree to attach to")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
}

// Execute runs the 9pget command-line interface.
func Execute() error {
	return rootCmd.Execute()
}

func runGet(cmd *cobra.Command, args []string) error {
	log := logrus.New()

	var ep transport.Endpoint
	switch network {
	case "unix":
		ep = transport.UnixEndpoint(address)
	default:
		ep = transport.TCPEndpoint(address)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rwc, err := ep.Dial(ctx)
	if err != nil {
		return err
	}
	defer rwc.Close()

	client, err := p9client.Dial(ctx, rwc, wire.MaxMessageSize, uname, aname)
	if err != nil {
		return err
	}
	defer client.Close()

	path := splitPath(args[0])

	fid, qids, err := client.Walk(ctx, client.RootFid(), path)
	if err != nil {
		return err
	}

	var isDir bool
	if len(qids) > 0 {
		isDir = qids[len(qids)-1].Type&wire.QTDIR != 0
	} else {
		isDir = true // empty path names the root
	}
	client.Clunk(ctx, fid)

	if isDir {
		stats, err := client.List(ctx, path)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("%s\t%d\t%o\n", s.Name, s.Length, s.Mode)
		}
		return nil
	}

	log.Debugf("reading %s", args[0])
	content, err := client.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(content)
	return err
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
