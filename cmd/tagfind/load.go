package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// vertexRecord is one entry of a load file:
//
//	- id: B
//	  attrs:
//	    color: red
//	    size: 3
type vertexRecord struct {
	ID    string         `yaml:"id"`
	Attrs map[string]any `yaml:"attrs"`
}

func readRecords(r io.Reader) ([]vertexRecord, error) {
	var records []vertexRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode vertices: %w", err)
	}
	for i, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("vertex %d: missing id", i)
		}
	}
	return records, nil
}

// tags converts the attributes of rec in name order.
func (rec vertexRecord) tags() ([]tagfind.Tag, error) {
	names := make([]string, 0, len(rec.Attrs))
	for name := range rec.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make([]tagfind.Tag, 0, len(names))
	for _, name := range names {
		t, err := tagfind.NewTag(name, rec.Attrs[name])
		if err != nil {
			return nil, fmt.Errorf("vertex %s: %w", rec.ID, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (c *cli) newLoadCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load --file vertices.yaml",
		Short: "Write vertices and their tags from a YAML file",
		Long: `Write vertices and their tags from a YAML list of {id, attrs} entries.
Use "-" to read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			records, err := readRecords(r)
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

			for _, rec := range records {
				tags, err := rec.tags()
				if err != nil {
					return err
				}
				if err := s.store.Tag(ctx, graph.VertexID(rec.ID), tags); err != nil {
					return fmt.Errorf("vertex %s: %w", rec.ID, err)
				}
			}
			fmt.Fprintf(c.stdout, "loaded %d vertices\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file to load")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
