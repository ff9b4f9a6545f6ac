package kb

import (
	"sort"

	"github.com/cognicore/expert/pkg/expert/rule"
)

// Role classifies where an attribute appears across the rule set.
type Role string

const (
	RoleNone       Role = ""
	RoleCondition  Role = "condition"
	RoleConclusion Role = "conclusion"
	RoleBoth       Role = "both"
)

// Catalog maps attribute names to their role. It is derived entirely from
// the rule sequence and rebuilt whenever rules change. Asserting given
// facts is restricted to attributes that appear in some condition.
type Catalog struct {
	cond  map[string]string // norm -> verbatim spelling
	concl map[string]string
}

func newCatalog() Catalog {
	return Catalog{
		cond:  make(map[string]string),
		concl: make(map[string]string),
	}
}

func (c *Catalog) addRule(r rule.Rule) {
	for _, cnd := range r.Conditions {
		if _, ok := c.cond[rule.Norm(cnd.Attr)]; !ok {
			c.cond[rule.Norm(cnd.Attr)] = cnd.Attr
		}
	}
	if _, ok := c.concl[rule.Norm(r.Conclusion.Attr)]; !ok {
		c.concl[rule.Norm(r.Conclusion.Attr)] = r.Conclusion.Attr
	}
}

// Role returns the role of an attribute, RoleNone for unknown attributes.
func (c *Catalog) Role(attr string) Role {
	key := rule.Norm(attr)
	_, isCond := c.cond[key]
	_, isConcl := c.concl[key]
	switch {
	case isCond && isConcl:
		return RoleBoth
	case isCond:
		return RoleCondition
	case isConcl:
		return RoleConclusion
	}
	return RoleNone
}

// ConditionAttrs lists attributes usable as given facts, sorted.
func (c *Catalog) ConditionAttrs() []string { return sortedValues(c.cond) }

// ConclusionAttrs lists attributes that rules can derive, sorted. These are
// the candidate goals for backward chaining.
func (c *Catalog) ConclusionAttrs() []string { return sortedValues(c.concl) }

// Attrs lists every attribute mentioned by any rule, sorted.
func (c *Catalog) Attrs() []string {
	merged := make(map[string]string, len(c.cond)+len(c.concl))
	for k, v := range c.cond {
		merged[k] = v
	}
	for k, v := range c.concl {
		merged[k] = v
	}
	return sortedValues(merged)
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ExampleValues returns up to max distinct values the rule conditions
// compare the attribute against, in rule order. The shell shows these when
// a fact is being entered.
func (b *Base) ExampleValues(attr string, max int) []rule.Value {
	var seen []rule.Value
	key := rule.Norm(attr)
	for _, r := range b.rules {
		for _, c := range r.Conditions {
			if rule.Norm(c.Attr) != key {
				continue
			}
			if containsValue(seen, c.Value) {
				continue
			}
			seen = append(seen, c.Value)
			if max > 0 && len(seen) >= max {
				return seen
			}
		}
	}
	return seen
}

// GoalValues returns the distinct values the rules can conclude for an
// attribute, in rule order. These are the candidate goal values for prove.
func (b *Base) GoalValues(attr string) []rule.Value {
	var seen []rule.Value
	key := rule.Norm(attr)
	for _, r := range b.rules {
		if rule.Norm(r.Conclusion.Attr) != key {
			continue
		}
		if containsValue(seen, r.Conclusion.Value) {
			continue
		}
		seen = append(seen, r.Conclusion.Value)
	}
	return seen
}

func containsValue(vs []rule.Value, v rule.Value) bool {
	for _, have := range vs {
		if have.Equal(v) {
			return true
		}
	}
	return false
}
