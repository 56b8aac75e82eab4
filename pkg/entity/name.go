package entity

import (
	"fmt"
	"regexp"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

// Namer is implemented by entities that compute their own display name.
type Namer interface {
	InstanceName() (string, error)
}

var namePlaceholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// InstanceName returns the human-readable name of e. Entities implementing
// Namer name themselves; others use the NamePattern of their meta-class, whose
// placeholders must refer to declared, loaded attributes.
func InstanceName(e Entity) (string, error) {
	if n, ok := e.(Namer); ok {
		return n.InstanceName()
	}

	mc := e.MetaClass()
	if mc.NamePattern == "" {
		return "", errors.New(errors.ErrCodeNotFound, "no name pattern").WithEntity(mc.Name)
	}

	var err error
	name := namePlaceholder.ReplaceAllStringFunc(mc.NamePattern, func(m string) string {
		prop := m[1 : len(m)-1]
		if _, declared := mc.Property(prop); !declared {
			if err == nil {
				err = errors.New(errors.ErrCodeNotFound, "name pattern refers to unknown property").
					WithEntity(mc.Name).WithProperty(prop)
			}
			return ""
		}
		v, loaded := e.Value(prop)
		if !loaded {
			if err == nil {
				err = errors.New(errors.ErrCodeInvalidInput, "name pattern refers to unloaded property").
					WithEntity(mc.Name).WithProperty(prop)
			}
			return ""
		}
		return namePart(v)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// namePart formats one placeholder value. Nested entities render as their id
// so that self-referencing patterns terminate.
func namePart(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case Entity:
		return t.MetaClass().Name + ":" + formatID(DefaultOracle{}.ID(t))
	case GeneratedID:
		return formatID(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
