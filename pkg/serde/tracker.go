package serde

import (
	"github.com/matzehuels/entitygraph/pkg/entity"
)

// trackerKey identifies an entity within one call.
type trackerKey struct {
	class string
	id    any
}

// tracker is the per-call reference table. It maps (identity, meta-class) to
// the canonical instance. The deserializer uses it to merge repeated
// references; the serializer uses it in compact mode to write each entity in
// full only once. A tracker is never shared between calls.
type tracker struct {
	entries map[trackerKey]entity.Entity

	// anonymous holds entities without identity, keyed by instance.
	anonymous map[entity.Entity]struct{}
}

func newTracker() *tracker {
	return &tracker{
		entries:   map[trackerKey]entity.Entity{},
		anonymous: map[entity.Entity]struct{}{},
	}
}

func (t *tracker) lookup(class string, id any) (entity.Entity, bool) {
	key, ok := entity.IdentityKey(id)
	if !ok {
		return nil, false
	}
	e, ok := t.entries[trackerKey{class, key}]
	return e, ok
}

// putIfAbsent registers e and returns the canonical instance for its key.
// Entities without identity are not registered and are returned as is.
func (t *tracker) putIfAbsent(class string, id any, e entity.Entity) entity.Entity {
	key, ok := entity.IdentityKey(id)
	if !ok {
		return e
	}
	k := trackerKey{class, key}
	if existing, ok := t.entries[k]; ok {
		return existing
	}
	t.entries[k] = e
	return e
}

// firstVisit records e and reports whether it had not been seen yet. Entities
// without identity fall back to instance tracking.
func (t *tracker) firstVisit(class string, id any, e entity.Entity) bool {
	if _, ok := entity.IdentityKey(id); ok {
		_, seen := t.lookup(class, id)
		if !seen {
			t.putIfAbsent(class, id, e)
		}
		return !seen
	}
	if _, seen := t.anonymous[e]; seen {
		return false
	}
	t.anonymous[e] = struct{}{}
	return true
}

// path is the chain of entities from the root to the node being written. It
// is immutable: descending allocates a new node, so sibling subtrees never
// observe each other's entries.
type path struct {
	e      entity.Entity
	class  string
	key    any
	keyed  bool
	parent *path
}

func (p *path) with(e entity.Entity, id any) *path {
	key, ok := entity.IdentityKey(id)
	return &path{e: e, class: e.MetaClass().Name, key: key, keyed: ok, parent: p}
}

// contains reports whether e, or an entity with the same identity and class,
// is an ancestor.
func (p *path) contains(e entity.Entity, id any) bool {
	key, keyed := entity.IdentityKey(id)
	class := e.MetaClass().Name
	for n := p; n != nil; n = n.parent {
		if n.e == e {
			return true
		}
		if keyed && n.keyed && n.class == class && n.key == key {
			return true
		}
	}
	return false
}
