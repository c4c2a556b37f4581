package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/transit/internal/config"
	"github.com/vango-dev/transit/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:   "transit",
		Short: "Inspect transit route trees",
		Long: `transit inspects the route tree of a transit application.

It scans the routes directory named in transit.json and reports the
route table the server and the client runtime will both use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "C", ".", "project directory (searched upwards for transit.json)")

	load := func() (*config.Config, error) {
		root, err := config.FindProjectRoot(dir)
		if err != nil {
			return nil, err
		}
		return config.Load(root)
	}

	rootCmd.AddCommand(
		routesCmd(load),
		matchCmd(load),
		checkCmd(load),
		versionCmd(),
	)
	return rootCmd
}

type loadFunc func() (*config.Config, error)

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
