package main

import (
	"fmt"

	"github.com/hupe1980/tagfind/graph"
	"github.com/spf13/cobra"
)

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the tags of a vertex",
		Long: `Print the tags of a vertex, one per line in the form accepted by
--tag, sorted by name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			ctx, cancel := s.withTimeout(cmd.Context())
			defer cancel()

			tags, ok, err := s.store.Tags(ctx, graph.VertexID(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("vertex %q not found", args[0])
			}
			for _, t := range tags {
				fmt.Fprintln(c.stdout, t)
			}
			return nil
		},
	}
}
