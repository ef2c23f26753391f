package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/spf13/cobra"
)

func (c *cli) newTagCmd() *cobra.Command {
	var (
		id      string
		tagArgs []string
	)

	cmd := &cobra.Command{
		Use:   "tag [--id ID] --tag name[:type]=value ...",
		Short: "Attach tags to a vertex",
		Long: `Attach tags to a vertex, creating it if needed, and print its ID.

Existing tags with the same name are replaced. Without --id a random UUID
is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := tagfind.ParseTags(tagArgs)
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}

			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			ctx, cancel := s.withTimeout(cmd.Context())
			defer cancel()

			if err := s.store.Tag(ctx, graph.VertexID(id), tags); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "vertex ID (default: random UUID)")
	cmd.Flags().StringArrayVarP(&tagArgs, "tag", "t", nil, "tag to attach (repeatable)")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}
