package kb

import (
	"fmt"

	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// Status marks how a fact entered the knowledge base.
type Status string

const (
	StatusGiven   Status = "given"
	StatusDerived Status = "derived"
)

// Fact is one attribute/value assertion. At most one value per attribute
// holds at any time; the attribute identity is its normalized name.
type Fact struct {
	Attr   string
	Value  rule.Value
	Status Status
}

func (f Fact) String() string {
	return fmt.Sprintf("%s = %s", f.Attr, f.Value)
}

// ContradictionError reports an attempt to assert a value for an attribute
// that already holds a different one.
type ContradictionError struct {
	Attr string
	Have rule.Value
	Want rule.Value
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("attribute %q already holds %s, cannot assert %s", e.Attr, e.Have, e.Want)
}

func (e *ContradictionError) Unwrap() error { return internalerr.ErrContradiction }

// Base holds the fact and rule sequences. Both keep insertion order: rule
// order drives forward firing order and backward trial order, fact order
// drives listings and serialization.
type Base struct {
	facts      []Fact
	factIdx    map[string]int // rule.Norm(attr) -> index into facts
	rules      []rule.Rule
	nextRuleID int
	catalog    Catalog
}

// New creates an empty knowledge base.
func New() *Base {
	return &Base{
		factIdx:    make(map[string]int),
		nextRuleID: 1,
		catalog:    newCatalog(),
	}
}

// Get returns the current fact for an attribute.
func (b *Base) Get(attr string) (Fact, bool) {
	if i, ok := b.factIdx[rule.Norm(attr)]; ok {
		return b.facts[i], true
	}
	return Fact{}, false
}

// Holds reports whether the attribute currently holds exactly this value.
func (b *Base) Holds(attr string, v rule.Value) bool {
	f, ok := b.Get(attr)
	return ok && f.Value.Equal(v)
}

// Facts returns the facts in insertion order.
func (b *Base) Facts() []Fact {
	out := make([]Fact, len(b.facts))
	copy(out, b.facts)
	return out
}

// AddFact asserts a user-given fact. Conclusion-only attributes must be
// derived, never asserted. A different existing value is a contradiction
// unless overwrite is set; overwriting replaces the fact and the caller is
// expected to invalidate dependent justifications.
func (b *Base) AddFact(attr string, v rule.Value, overwrite bool) error {
	if b.catalog.Role(attr) == RoleConclusion {
		return fmt.Errorf("%q is a conclusion attribute, it must be derived: %w", attr, internalerr.ErrRoleViolation)
	}
	if cur, ok := b.Get(attr); ok && !cur.Value.Equal(v) && !overwrite {
		return &ContradictionError{Attr: attr, Have: cur.Value, Want: v}
	}
	b.put(Fact{Attr: attr, Value: v, Status: StatusGiven})
	return nil
}

// AssertDerived records a conclusion reached by an inference engine. A
// conflicting existing value is a contradiction; the engines resolve it
// with a first-wins policy and never overwrite.
func (b *Base) AssertDerived(attr string, v rule.Value) error {
	if cur, ok := b.Get(attr); ok && !cur.Value.Equal(v) {
		return &ContradictionError{Attr: attr, Have: cur.Value, Want: v}
	}
	if _, ok := b.Get(attr); !ok {
		b.put(Fact{Attr: attr, Value: v, Status: StatusDerived})
	}
	return nil
}

// RemoveFact deletes the fact for an attribute and returns it so dependent
// justifications can be invalidated.
func (b *Base) RemoveFact(attr string) (Fact, error) {
	key := rule.Norm(attr)
	i, ok := b.factIdx[key]
	if !ok {
		return Fact{}, fmt.Errorf("fact %q: %w", attr, internalerr.ErrNotFound)
	}
	removed := b.facts[i]
	b.facts = append(b.facts[:i], b.facts[i+1:]...)
	delete(b.factIdx, key)
	for j := i; j < len(b.facts); j++ {
		b.factIdx[rule.Norm(b.facts[j].Attr)] = j
	}
	return removed, nil
}

func (b *Base) put(f Fact) {
	key := rule.Norm(f.Attr)
	if i, ok := b.factIdx[key]; ok {
		b.facts[i] = f
		return
	}
	b.facts = append(b.facts, f)
	b.factIdx[key] = len(b.facts) - 1
}

// AddRule stores a rule. ID 0 gets the next free ID; explicit IDs (from a
// loaded snapshot) must not collide. The conclusion attribute must not
// currently hold as a given fact, which would make derivation moot. The
// variable catalog is recomputed on success; validation happens first so a
// failed add leaves the base untouched.
func (b *Base) AddRule(r rule.Rule) (int, error) {
	if r.ID == 0 {
		r.ID = b.nextRuleID
	} else {
		for _, have := range b.rules {
			if have.ID == r.ID {
				return 0, fmt.Errorf("rule #%d: %w", r.ID, internalerr.ErrDuplicateID)
			}
		}
	}
	if len(r.Conditions) == 0 {
		return 0, &rule.SyntaxError{Segment: r.Text, Reason: "rule has no conditions"}
	}
	if f, ok := b.Get(r.Conclusion.Attr); ok && f.Status == StatusGiven {
		return 0, fmt.Errorf("conclusion attribute %q is asserted as a given fact: %w",
			r.Conclusion.Attr, internalerr.ErrRoleViolation)
	}

	b.rules = append(b.rules, r)
	if r.ID >= b.nextRuleID {
		b.nextRuleID = r.ID + 1
	}
	b.catalog.addRule(r)
	return r.ID, nil
}

// RemoveRule deletes a rule by ID and rebuilds the catalog.
func (b *Base) RemoveRule(id int) error {
	for i, r := range b.rules {
		if r.ID == id {
			b.rules = append(b.rules[:i], b.rules[i+1:]...)
			b.rebuildCatalog()
			return nil
		}
	}
	return fmt.Errorf("rule #%d: %w", id, internalerr.ErrNotFound)
}

// Rules returns the rules in insertion order.
func (b *Base) Rules() []rule.Rule {
	out := make([]rule.Rule, len(b.rules))
	copy(out, b.rules)
	return out
}

// Rule returns a stored rule by ID.
func (b *Base) Rule(id int) (rule.Rule, bool) {
	for _, r := range b.rules {
		if r.ID == id {
			return r, true
		}
	}
	return rule.Rule{}, false
}

// Catalog exposes the attribute role catalog derived from the rules.
func (b *Base) Catalog() *Catalog { return &b.catalog }

func (b *Base) rebuildCatalog() {
	b.catalog = newCatalog()
	for _, r := range b.rules {
		b.catalog.addRule(r)
	}
}
