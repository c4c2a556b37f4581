package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/transit/pkg/transition"
)

func checkCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the route tree",
		Long: `Scan the routes directory and build the server route tables, reporting
unsupported sources, duplicate patterns and projection collisions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := scan(load)
			if err != nil {
				return err
			}
			if _, err := transition.NewRoutes(m, nil, ""); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%d page routes, %d API routes", len(m.Pages), len(m.API))
			return nil
		},
	}
}
