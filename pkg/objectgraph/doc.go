// Package objectgraph exports the reference structure of an entity graph as
// nodes and edges.
//
// [Build] walks every loaded reference reachable from a set of roots. Each
// non-embeddable entity becomes one [Node] with an id of the form "Class:id";
// each reference becomes an [Edge] labelled with the property it goes through.
// Cycles are fine: an entity is visited once.
//
//	g := objectgraph.Build(roots, nil)
//	_ = g.WriteJSON(os.Stdout)
//
// The graph can be drawn with Graphviz:
//
//	dot := objectgraph.ToDOT(g, objectgraph.Options{Detailed: true})
//	svg, err := objectgraph.RenderSVG(ctx, dot)
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz in
// process, so no external binary is needed.
package objectgraph
