// Package cli implements the entitygraph command-line interface.
//
// The commands load a TOML schema describing the entity model and then read,
// convert or explore JSON documents in the entity wire format.
//
// # Commands
//
//   - schema: Print the classes, enums and fetch plans of a schema
//   - convert: Read a document and write it again with different options
//   - graph: Export the reference graph of a document as JSON, DOT or SVG
//   - inspect: Pick an entity of a document interactively and print it
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs every serialization and schema load. Loggers are passed through
// context.Context.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "entitygraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var (
	version = "dev"     // semantic version (e.g., "v1.2.3")
	commit  = "none"    // git commit SHA
	date    = "unknown" // build timestamp
)

// SetVersion sets the version information displayed by --version. The main
// package calls it with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Entitygraph converts entity graphs to and from JSON",
		Long:         `Entitygraph reads and writes graphs of typed entities in a JSON format that keeps identity, cycles and partial load state, driven by a TOML schema.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
				hooks := newLogHooks(c.Logger)
				observability.SetSerdeHooks(hooks)
				observability.SetSchemaHooks(hooks)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.completionCommand())

	return root
}
