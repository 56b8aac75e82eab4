package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/metadata"
)

// schemaCommand creates the schema command for describing a schema file.
func (c *CLI) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <schema.toml>",
		Short: "Describe the classes, enums and fetch plans of a schema",
		Long: `Describe a schema file.

The schema is loaded and validated exactly as the other commands load it, so
this is also the quickest way to check a schema for errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSchema(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func printSchema(w io.Writer, sess *session) {
	reg := sess.reg

	fmt.Fprintln(w, StyleTitle.Render("Entities"))
	rows := make([][]string, 0, len(reg.Classes()))
	for _, mc := range reg.Classes() {
		props := make([]string, 0, len(mc.Properties))
		for _, p := range mc.Properties {
			if p.Name == mc.PrimaryKey {
				continue
			}
			props = append(props, describeProperty(p))
		}
		rows = append(rows, []string{mc.Name, describeKey(mc), strings.Join(props, "\n"), describeClass(mc)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		BorderRow(true).
		Headers("Entity", "Key", "Properties", "Notes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			if col == 0 {
				return StyleHighlight.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())

	if enums := reg.Enums(); len(enums) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render("Enums"))
		for _, e := range enums {
			printKeyValue(w, e.Name, strings.Join(e.Values, ", "))
		}
	}

	if plans := reg.FetchPlans(); len(plans) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render("Fetch plans"))
		for _, p := range plans {
			printKeyValue(w, p.String(), strings.Join(p.Properties(), ", "))
		}
	}

	fmt.Fprintln(w)
	printKeyValue(w, "security tokens", fmt.Sprint(reg.Serialization.SecurityTokens))
	if sess.defaults != 0 {
		printKeyValue(w, "default options", sess.defaults.String())
	}
}

func describeKey(mc *metadata.MetaClass) string {
	pk := mc.PrimaryKeyProperty()
	if pk == nil {
		return "—"
	}
	switch mc.IDKind {
	case metadata.CompositeID:
		return fmt.Sprintf("%s (%s)", pk.Name, pk.Target.Name)
	case metadata.GeneratedID:
		if mc.NaturalID != "" {
			return fmt.Sprintf("%s: %s, generated\nnatural: %s", pk.Name, pk.Datatype, mc.NaturalID)
		}
		return fmt.Sprintf("%s: %s, generated", pk.Name, pk.Datatype)
	}
	return fmt.Sprintf("%s: %s", pk.Name, pk.Datatype)
}

// describeProperty renders a property as "name: type", with "[]" for lists,
// "{}" for sets and "→" for references.
func describeProperty(p *metadata.MetaProperty) string {
	var typ string
	switch p.Kind {
	case metadata.RangeDatatype:
		typ = p.Datatype
	case metadata.RangeEnum:
		typ = p.Enum.Name
	case metadata.RangeEntity, metadata.RangeCollection:
		typ = iconArrow + p.Target.Name
	}
	switch p.Collection {
	case metadata.List:
		typ += "[]"
	case metadata.Set:
		typ += "{}"
	case metadata.Map:
		typ += "{:}"
	}

	var flags []string
	if p.IsEmbedded() {
		flags = append(flags, "embedded")
	}
	if p.ReadOnly {
		flags = append(flags, "read-only")
	}
	if !p.Persistent {
		flags = append(flags, "transient")
	}

	s := p.Name + ": " + typ
	if len(flags) > 0 {
		s += " " + StyleDim.Render("("+strings.Join(flags, ", ")+")")
	}
	return s
}

func describeClass(mc *metadata.MetaClass) string {
	var notes []string
	if mc.IsEmbeddable() {
		notes = append(notes, "embeddable")
	}
	if mc.NamePattern != "" {
		notes = append(notes, "name: "+mc.NamePattern)
	}
	return strings.Join(notes, "\n")
}
