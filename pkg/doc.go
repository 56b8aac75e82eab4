// Package pkg provides the core libraries of entitygraph, a metadata-driven
// JSON serializer for entity graphs.
//
// # Overview
//
// Entities are described at runtime by meta-classes rather than Go structs.
// The serializer walks those meta-classes to write an entity graph as JSON and
// to rebuild it again, keeping identity, cycles and partial load state intact.
// The pkg directory is organized into these areas:
//
//  1. [metadata] - Meta-classes, properties, enums and the TOML schema loader
//  2. [entity] - Dynamic entities, load state and identity keys
//  3. [datatype] - Scalar datatypes and their JSON encodings
//  4. [fetchplan] - Named views restricting which attributes are written
//  5. [serde] - The JSON serializer and deserializer
//  6. [objectgraph] - Node-link views of entity graphs (JSON, DOT, SVG)
//
// Cross-cutting concerns live in [errors] (coded errors) and [observability]
// (hooks for serialization and schema events).
//
// # Architecture
//
//	schema.toml
//	     ↓
//	[metadata] package (registry of meta-classes, enums, fetch plans)
//	     ↓
//	[serde] package  ⇄  JSON documents
//	     ↓
//	[entity] graph  →  [objectgraph] (JSON, DOT, SVG)
//
// # Quick Start
//
// Load a schema and round-trip a document:
//
//	reg, _ := metadata.LoadSchemaFile("schema.toml")
//	s := serde.New(serde.Config{Provider: reg})
//
//	order, _ := reg.MetaClass("Order")
//	e, _ := s.EntityFromJSON(data, order)
//	out, _ := s.EntityToJSON(e, nil, serde.PrettyPrint|serde.SerializeInstanceName)
//
// Restrict the output to a fetch plan:
//
//	plan, _ := reg.FetchPlan("Order", "order-brief")
//	out, _ := s.EntityToJSON(e, plan)
//
// Draw what was read:
//
//	g := objectgraph.Build([]entity.Entity{e}, nil)
//	dot := objectgraph.ToDOT(g, objectgraph.Options{Detailed: true})
//	svg, _ := objectgraph.RenderSVG(ctx, dot)
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/serde/...     # Specific package
//	go test -run Example ./...  # Examples only
//
// [metadata]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/metadata
// [entity]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/entity
// [datatype]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/datatype
// [fetchplan]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/fetchplan
// [serde]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/serde
// [objectgraph]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/objectgraph
// [errors]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/entitygraph/pkg/observability
package pkg
