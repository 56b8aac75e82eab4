package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/metadata"
	"github.com/matzehuels/entitygraph/pkg/serde"
)

// session is a loaded schema together with the serde built from it.
type session struct {
	reg      *metadata.Registry
	serde    *serde.Serde
	defaults serde.Option // from the schema's [serialization] table
}

func openSession(ctx context.Context, path string) (*session, error) {
	logger := loggerFromContext(ctx)

	reg, err := metadata.LoadSchemaFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	defaults, err := serde.ParseOptions(reg.Serialization.Options)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	logger.Debug("schema ready", "path", path, "classes", len(reg.Classes()), "options", defaults.String())

	s := serde.New(serde.Config{
		Provider:       reg,
		Logger:         logger,
		SecurityTokens: reg.Serialization.SecurityTokens,
	})
	return &session{reg: reg, serde: s, defaults: defaults}, nil
}

// decode reads a document holding either one entity or an array of them.
// class names the meta-class of members without "_entityName" and may be
// empty. many reports whether the document was an array.
func (s *session) decode(data []byte, class string) (es []entity.Entity, many bool, err error) {
	var mc *metadata.MetaClass
	if class != "" {
		if mc, err = s.reg.MetaClass(class); err != nil {
			return nil, false, err
		}
	}
	if isArray(data) {
		es, err = s.serde.EntitiesFromJSON(data, mc)
		return es, true, err
	}
	e, err := s.serde.EntityFromJSON(data, mc)
	if err != nil {
		return nil, false, err
	}
	return []entity.Entity{e}, false, nil
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, err := io.WriteString(out, "\n")
			return err
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printFile(cmd.ErrOrStderr(), path)
	return nil
}
