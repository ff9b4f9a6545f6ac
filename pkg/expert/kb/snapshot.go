package kb

import "github.com/cognicore/expert/pkg/expert/rule"

// Snapshot is a deep copy of the base, enough to restore it exactly. The
// facade keeps one of these per mutating operation for single-level undo.
type Snapshot struct {
	Facts      []Fact
	Rules      []rule.Rule
	NextRuleID int
}

// Snapshot deep-copies the current state.
func (b *Base) Snapshot() Snapshot {
	facts := make([]Fact, len(b.facts))
	copy(facts, b.facts)
	rules := make([]rule.Rule, len(b.rules))
	for i, r := range b.rules {
		conds := make([]rule.Condition, len(r.Conditions))
		copy(conds, r.Conditions)
		r.Conditions = conds
		rules[i] = r
	}
	return Snapshot{Facts: facts, Rules: rules, NextRuleID: b.nextRuleID}
}

// Restore replaces the base's state with a snapshot. The catalog and fact
// index are rebuilt rather than trusted from the snapshot.
func (b *Base) Restore(s Snapshot) {
	b.facts = make([]Fact, len(s.Facts))
	copy(b.facts, s.Facts)
	b.factIdx = make(map[string]int, len(b.facts))
	for i, f := range b.facts {
		b.factIdx[rule.Norm(f.Attr)] = i
	}
	b.rules = make([]rule.Rule, len(s.Rules))
	for i, r := range s.Rules {
		conds := make([]rule.Condition, len(r.Conditions))
		copy(conds, r.Conditions)
		r.Conditions = conds
		b.rules[i] = r
	}
	b.nextRuleID = s.NextRuleID
	if b.nextRuleID < 1 {
		b.nextRuleID = 1
	}
	b.rebuildCatalog()
}
