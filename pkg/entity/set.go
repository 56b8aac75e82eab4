package entity

// Set is an insertion-ordered collection of distinct entity instances.
type Set struct {
	items []Entity
	index map[Entity]struct{}
}

// NewSet creates a set holding items, dropping repeated instances.
func NewSet(items ...Entity) *Set {
	s := &Set{index: make(map[Entity]struct{}, len(items))}
	for _, e := range items {
		s.Add(e)
	}
	return s
}

// Add inserts e and reports whether it was not yet present.
func (s *Set) Add(e Entity) bool {
	if s.index == nil {
		s.index = map[Entity]struct{}{}
	}
	if _, ok := s.index[e]; ok {
		return false
	}
	s.index[e] = struct{}{}
	s.items = append(s.items, e)
	return true
}

func (s *Set) Contains(e Entity) bool {
	_, ok := s.index[e]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the members in insertion order.
func (s *Set) Items() []Entity {
	if s == nil {
		return nil
	}
	out := make([]Entity, len(s.items))
	copy(out, s.items)
	return out
}
