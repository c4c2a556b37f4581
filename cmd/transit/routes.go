package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/transit/pkg/router"
)

func scan(load loadFunc) (*router.Manifest, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	return router.NewScanner(cfg.RoutesPath(), cfg.GeneratedPath()).Scan()
}

func routesCmd(load loadFunc) *cobra.Command {
	var (
		asJSON bool
		client bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List routes in match order",
		Long: `Scan the routes directory and list page and API routes in the order
they are matched. --client prints the route snapshot embedded in documents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := scan(load)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || client {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if client {
					return enc.Encode(router.Snapshot{Pages: m.ClientRoutes(), Assets: map[string]string{}})
				}
				return enc.Encode(m)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPATTERN\tFILE\tID\tSCORE")
			for _, group := range [][]router.RouteDefinition{m.Pages, m.API} {
				for _, r := range group {
					file := r.FilePath
					if r.GeneratedPath != "" {
						file += " -> " + r.GeneratedPath
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.Kind, r.RoutePath, file, r.ID, r.Score)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full manifest as JSON")
	cmd.Flags().BoolVar(&client, "client", false, "print the client route snapshot as JSON")
	return cmd
}

func matchCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "match <path>",
		Short: "Show which page route a path resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := scan(load)
			if err != nil {
				return err
			}

			pathname := args[0]
			if i := strings.IndexAny(pathname, "?#"); i >= 0 {
				pathname = pathname[:i]
			}
			res := router.Match(m.Pages, pathname)
			if res == nil {
				return fmt.Errorf("no route matches %s", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s (%s)\n", res.Route.RoutePath, res.Route.FilePath, res.Route.ID)
			for _, seg := range res.Route.Segments {
				if seg.Kind == router.SegmentStatic {
					continue
				}
				fmt.Fprintf(out, "  %s = %q\n", seg.Value, res.Params[seg.Value])
			}
			return nil
		},
	}
}
