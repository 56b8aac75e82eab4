// Package fetchplan defines projections over entity graphs.
//
// A fetch plan names the attributes of an entity that take part in
// serialization and, for nested entities, the plan that applies to them. A nil
// *FetchPlan is valid everywhere and means "no projection": every eligible
// attribute is written, at any depth.
//
//	brief := fetchplan.New("Customer", "customer-brief").Add("name")
//	plan := fetchplan.New("Order", "order-with-customer").
//	    Add("number", "total").
//	    AddNested("customer", brief)
package fetchplan

// FetchPlan is a projection tree rooted at one meta-class.
type FetchPlan struct {
	Entity string
	Name   string

	properties []string
	nested     map[string]*FetchPlan
}

// New creates an empty plan for the given meta-class.
func New(entity, name string) *FetchPlan {
	return &FetchPlan{Entity: entity, Name: name, nested: map[string]*FetchPlan{}}
}

// Add includes properties without a nested projection.
func (p *FetchPlan) Add(names ...string) *FetchPlan {
	for _, name := range names {
		p.add(name)
	}
	return p
}

// AddNested includes a property and restricts its nested entities to plan.
// A nil plan leaves the nested entities unrestricted.
func (p *FetchPlan) AddNested(name string, plan *FetchPlan) *FetchPlan {
	p.add(name)
	if plan != nil {
		p.nested[name] = plan
	}
	return p
}

func (p *FetchPlan) add(name string) {
	if p.nested == nil {
		p.nested = map[string]*FetchPlan{}
	}
	for _, existing := range p.properties {
		if existing == name {
			return
		}
	}
	p.properties = append(p.properties, name)
}

// Has reports whether the property takes part in the projection.
// A nil plan includes everything.
func (p *FetchPlan) Has(name string) bool {
	if p == nil {
		return true
	}
	for _, existing := range p.properties {
		if existing == name {
			return true
		}
	}
	return false
}

// Nested returns the plan for the entities under the given property, or nil
// when they are unrestricted.
func (p *FetchPlan) Nested(name string) *FetchPlan {
	if p == nil {
		return nil
	}
	return p.nested[name]
}

// Properties returns the included property names in insertion order.
func (p *FetchPlan) Properties() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.properties))
	copy(out, p.properties)
	return out
}

func (p *FetchPlan) String() string {
	if p == nil {
		return "<all>"
	}
	return p.Entity + "/" + p.Name
}
