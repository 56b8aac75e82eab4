package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/objectgraph"
	"github.com/matzehuels/entitygraph/pkg/serde"
)

type inspectOptions struct {
	entity string
	node   string
}

// inspectCommand creates the inspect command for browsing the entities of a
// document.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <schema.toml> <doc.json|->",
		Short: "Browse the entities of a document and print one",
		Long: `Browse every entity reachable in a document and print the selected one.

The list shows each entity with its instance name, how many of its attributes
are loaded, and how many references leave it. The selection is printed with
its instance name and indentation.

Use --node to print an entity without the interactive picker.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.entity, "entity", "e", "", "meta-class of members without _entityName")
	cmd.Flags().StringVar(&opts.node, "node", "", `node id to print, e.g. "Order:42"`)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, cmd *cobra.Command, schemaPath, input string, opts inspectOptions) error {
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

	var selected objectgraph.Node
	if opts.node != "" {
		n, ok := g.Node(opts.node)
		if !ok {
			return fmt.Errorf("no entity %q in document", opts.node)
		}
		selected = n
	} else {
		p := tea.NewProgram(NewEntityListModel(g), tea.WithContext(ctx), tea.WithOutput(cmd.ErrOrStderr()))
		final, err := p.Run()
		if err != nil {
			return err
		}
		fm, ok := final.(EntityListModel)
		if !ok || fm.Selected == nil {
			printInfo(cmd.ErrOrStderr(), "No selection made")
			return nil
		}
		selected = *fm.Selected
	}

	// Cycles and repeats below the selection still reduce to headers.
	out, err := sess.serde.EntityToJSON(selected.Instance, nil,
		sess.defaults, serde.PrettyPrint, serde.SerializeInstanceName)
	if err != nil {
		return err
	}
	printSuccess(cmd.ErrOrStderr(), "%s", selected.ID)
	return writeOutput(cmd, "", out)
}
