package cli

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/objectgraph"
)

// Graph export formats.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var graphFormats = []string{formatJSON, formatDOT, formatSVG}

type graphOptions struct {
	entity   string
	format   string
	detailed bool
	output   string
}

// graphCommand creates the graph command for exporting the reference graph
// of a document.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "graph <schema.toml> <doc.json|->",
		Short: "Export the reference graph of an entity document",
		Long: `Export the reference graph of an entity document.

Every entity becomes a node with the id "Class:id", and every loaded reference
becomes an edge named after its property. The graph is written as JSON, as
Graphviz DOT source, or rendered to SVG in process.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(graphFormats, opts.format) {
				return fmt.Errorf("unknown format %q (want one of %v)", opts.format, graphFormats)
			}
			return c.runGraph(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json, dot, svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show ids and property names in DOT/SVG")
	cmd.Flags().StringVarP(&opts.entity, "entity", "e", "", "meta-class of members without _entityName")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, cmd *cobra.Command, schemaPath, input string, opts graphOptions) error {
	sess, err := openSession(ctx, schemaPath)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, input)
	if err != nil {
		return err
	}
	es, _, err := sess.decode(data, opts.entity)
	if err != nil {
		return err
	}

	g := objectgraph.Build(es, nil)
	printStats(cmd.ErrOrStderr(), len(g.Nodes), len(g.Edges))

	var out []byte
	switch opts.format {
	case formatJSON:
		var buf bytes.Buffer
		if err := g.WriteJSON(&buf); err != nil {
			return err
		}
		out = buf.Bytes()
	case formatDOT:
		out = []byte(objectgraph.ToDOT(g, objectgraph.Options{Detailed: opts.detailed}))
	case formatSVG:
		prog := newProgress(loggerFromContext(ctx))
		svg, err := objectgraph.RenderSVG(ctx, objectgraph.ToDOT(g, objectgraph.Options{Detailed: opts.detailed}))
		if err != nil {
			return err
		}
		prog.done("Rendered SVG")
		out = svg
	}
	return writeOutput(cmd, opts.output, out)
}
