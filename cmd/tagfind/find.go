package main

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/tagfind"
	"github.com/spf13/cobra"
)

func (c *cli) newFindCmd() *cobra.Command {
	var (
		tagArgs []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "find --tag name[:type]=value ...",
		Short: "Print the vertices carrying all given tags",
		Long: `Print the vertices carrying all given tags, one ID per line.

Tags use the form name[:type]=value where type is string (default), int,
float or bool:

  tagfind find --tag color=red --tag size:int=3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := tagfind.ParseTags(tagArgs)
			if err != nil {
				return err
			}

			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			ctx, cancel := s.withTimeout(cmd.Context())
			defer cancel()

			res, err := s.store.Find(ctx, tags)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(c.stdout)
				return enc.Encode(res)
			}
			for _, id := range res.IDs {
				fmt.Fprintln(c.stdout, id)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&tagArgs, "tag", "t", nil, "tag to match (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
