package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/fetchplan"
	"github.com/matzehuels/entitygraph/pkg/serde"
)

// optionFlags maps boolean flags to serde options. Unset flags keep the
// schema's default; explicitly set flags override it either way.
var optionFlags = []struct {
	name  string
	opt   serde.Option
	usage string
}{
	{"pretty", serde.PrettyPrint, "indent the output"},
	{"nulls", serde.SerializeNulls, "write nil members of plain objects as null"},
	{"compact", serde.CompactRepeatedEntities, "write each entity in full only once"},
	{"instance-name", serde.SerializeInstanceName, "add the _instanceName member"},
	{"skip-ro-transient", serde.DoNotSerializeRONonPersistentProperties, "omit read-only transient attributes"},
}

type convertOptions struct {
	entity string
	plan   string
	output string
}

// convertCommand creates the convert command, which reads a document and
// writes it again.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <schema.toml> <doc.json|->",
		Short: "Read an entity document and write it with new options",
		Long: `Read an entity document and write it again.

The document may hold a single entity or an array of entities. Reading merges
repeated identities, so converting with --compact collapses repeated entities
to headers, and converting without it expands them again (cycles excepted).

Options default to the [serialization] table of the schema. A fetch plan
(--plan) restricts the output to the attributes it names.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&opts.entity, "entity", "e", "", "meta-class of members without _entityName")
	cmd.Flags().StringVarP(&opts.plan, "plan", "p", "", "name of a fetch plan of the root entity")
	for _, f := range optionFlags {
		cmd.Flags().Bool(f.name, false, f.usage)
	}

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, cmd *cobra.Command, schemaPath, input string, opts convertOptions) error {
	logger := loggerFromContext(ctx)

	sess, err := openSession(ctx, schemaPath)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, input)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	es, many, err := sess.decode(data, opts.entity)
	if err != nil {
		return err
	}

	var plan *fetchplan.FetchPlan
	if opts.plan != "" {
		class := opts.entity
		if class == "" && len(es) > 0 {
			class = es[0].MetaClass().Name
		}
		if class == "" {
			return fmt.Errorf("--plan needs --entity for an empty document")
		}
		if plan, err = sess.reg.FetchPlan(class, opts.plan); err != nil {
			return err
		}
	}

	o := resolveOptions(cmd, sess.defaults)
	logger.Debug("converting", "entities", len(es), "plan", plan.String(), "options", o.String())

	var out []byte
	if many {
		out, err = sess.serde.EntitiesToJSON(es, plan, o)
	} else {
		out, err = sess.serde.EntityToJSON(es[0], plan, o)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Converted %d entities", len(es)))

	return writeOutput(cmd, opts.output, out)
}

// resolveOptions applies the option flags the user set on top of defaults.
func resolveOptions(cmd *cobra.Command, defaults serde.Option) serde.Option {
	o := defaults
	for _, f := range optionFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		if on, _ := cmd.Flags().GetBool(f.name); on {
			o |= f.opt
		} else {
			o &^= f.opt
		}
	}
	return o
}
