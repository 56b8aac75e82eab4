package objectgraph

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/metadata"
)

// =============================================================================
// Graph - Entity Reference Graph
// =============================================================================

// Graph is the node/edge view of an entity object graph. Nodes appear in
// discovery order, so equal inputs give equal output.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one entity of the graph.
type Node struct {
	ID     string `json:"id"`              // "Class:id"
	Entity string `json:"entity"`          // meta-class name
	Label  string `json:"label,omitempty"` // instance name, when one can be computed
	New    bool   `json:"new,omitempty"`

	// Instance is the entity the node was built from.
	Instance entity.Entity `json:"-"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a reference from one entity to another through a property.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Property string `json:"property"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// WriteJSON writes g as indented JSON.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// =============================================================================
// Building
// =============================================================================

// Build walks the loaded references reachable from roots. Entities are
// deduplicated by class and identity; entities without identity are
// deduplicated by instance and numbered in discovery order. Embeddable
// entities are part of their owner and never become nodes.
func Build(roots []entity.Entity, oracle entity.Oracle) *Graph {
	if oracle == nil {
		oracle = entity.DefaultOracle{}
	}
	b := &builder{
		oracle:  oracle,
		g:       &Graph{Nodes: []Node{}, Edges: []Edge{}},
		ids:     map[entity.Entity]string{},
		keyed:   map[string]bool{},
		edgeSet: map[Edge]bool{},
	}
	for _, e := range roots {
		if e != nil && !e.MetaClass().IsEmbeddable() {
			b.visit(e)
		}
	}
	return b.g
}

type builder struct {
	oracle  entity.Oracle
	g       *Graph
	ids     map[entity.Entity]string
	keyed   map[string]bool
	edgeSet map[Edge]bool
	anon    int
}

// visit adds e and everything it references, returning the node id of e.
func (b *builder) visit(e entity.Entity) string {
	if id, ok := b.ids[e]; ok {
		return id
	}
	mc := e.MetaClass()

	id, keyed := b.nodeID(e)
	b.ids[e] = id
	if keyed {
		if b.keyed[id] {
			return id
		}
		b.keyed[id] = true
	}

	node := Node{ID: id, Entity: mc.Name, New: b.oracle.IsNew(e), Instance: e}
	if name, err := entity.InstanceName(e); err == nil {
		node.Label = name
	}
	b.g.Nodes = append(b.g.Nodes, node)

	for _, p := range mc.Properties {
		if p.Kind != metadata.RangeEntity && p.Kind != metadata.RangeCollection {
			continue
		}
		if p.IsEmbedded() || p.Name == mc.PrimaryKey || !b.oracle.IsLoaded(e, p.Name) {
			continue
		}
		v, _ := e.Value(p.Name)
		for _, ref := range references(v) {
			to := b.visit(ref)
			b.addEdge(Edge{From: id, To: to, Property: p.Name})
		}
	}
	return id
}

func (b *builder) nodeID(e entity.Entity) (string, bool) {
	name := e.MetaClass().Name
	if _, ok := entity.IdentityKey(b.oracle.ID(e)); ok {
		return name + ":" + entity.FormatID(b.oracle.ID(e)), true
	}
	b.anon++
	return fmt.Sprintf("%s#%d", name, b.anon), false
}

func (b *builder) addEdge(e Edge) {
	if b.edgeSet[e] {
		return
	}
	b.edgeSet[e] = true
	b.g.Edges = append(b.g.Edges, e)
}

// references lists the non-embeddable entities held by a property value.
func references(v any) []entity.Entity {
	var items []entity.Entity
	switch t := v.(type) {
	case nil:
		return nil
	case *entity.Set:
		items = t.Items()
	case []entity.Entity:
		items = t
	case []any:
		for _, el := range t {
			if e, ok := el.(entity.Entity); ok {
				items = append(items, e)
			}
		}
	case entity.Entity:
		items = []entity.Entity{t}
	}

	out := items[:0:0]
	for _, e := range items {
		if e != nil && !e.MetaClass().IsEmbeddable() {
			out = append(out, e)
		}
	}
	return out
}
