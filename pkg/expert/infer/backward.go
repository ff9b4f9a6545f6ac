package infer

import (
	"fmt"
	"strings"

	"github.com/cognicore/expert/pkg/expert/justify"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// Outcome is the verdict of a backward proof.
type Outcome string

const (
	// Proved: a finite acyclic chain of rules and facts grounds the goal.
	Proved Outcome = "proved"
	// Disproved: the closed-world fact for the attribute holds a
	// different value.
	Disproved Outcome = "disproved"
	// Unknown: no rule concludes the goal, or no rule's conditions hold.
	Unknown Outcome = "unknown"
)

// Result reports one top-level proof attempt.
type Result struct {
	Attr    string
	Value   rule.Value
	Outcome Outcome

	// Justification is the record produced for the goal when it was
	// derived by this proof; nil when the goal already held as a fact.
	Justification *justify.Record

	// Cyclic is set when the proof hit a rule cycle; CyclePath names the
	// attribute path that closed the cycle.
	Cyclic    bool
	CyclePath []string

	// Diagnosis explains a failed proof: for every candidate rule, the
	// status of each condition against the current facts.
	Diagnosis []RuleDiagnosis
}

// RuleDiagnosis is the per-rule part of a failure diagnosis.
type RuleDiagnosis struct {
	RuleID     int
	RuleText   string
	Conditions []ConditionStatus
}

// ConditionStatus reports one condition of a candidate rule.
type ConditionStatus struct {
	Condition rule.Condition
	Holds     bool
	Missing   bool       // no fact for the attribute
	Actual    rule.Value // the fact's value when present
}

func (cs ConditionStatus) String() string {
	switch {
	case cs.Holds:
		return fmt.Sprintf("%s -> ok", cs.Condition)
	case cs.Missing:
		return fmt.Sprintf("%s -> failed (no fact for %q)", cs.Condition, cs.Condition.Attr)
	default:
		return fmt.Sprintf("%s -> failed (holds %s)", cs.Condition, cs.Actual)
	}
}

// Prover runs goal-directed depth-first proofs. Sub-goal outcomes are
// memoized within one Prove call and discarded between calls, since facts
// may change in between. A Prover is not safe for concurrent use.
type Prover struct {
	base *kb.Base
	just *justify.Store

	memo  map[string]Outcome
	path  map[string]bool // normalized attrs on the active recursion path
	order []string        // same attrs, in recursion order, for diagnostics

	cyclic    bool
	cyclePath []string
	runID     string
}

// NewProver creates a prover over a knowledge base and justification store.
func NewProver(base *kb.Base, just *justify.Store) *Prover {
	return &Prover{base: base, just: just}
}

// Prove attempts to establish goal attr = value. Facts derived along the
// way stay in the knowledge base with their justifications, as in the
// forward engine.
func (p *Prover) Prove(attr string, v rule.Value) Result {
	p.memo = make(map[string]Outcome)
	p.path = make(map[string]bool)
	p.order = nil
	p.cyclic = false
	p.cyclePath = nil
	p.runID = p.just.NewRunID()

	outcome := p.prove(attr, v)

	res := Result{Attr: attr, Value: v, Outcome: outcome, Cyclic: p.cyclic, CyclePath: p.cyclePath}
	if outcome == Proved {
		if rec, ok := p.just.Primary(attr); ok {
			res.Justification = &rec
		}
	} else {
		res.Diagnosis = p.Diagnose(attr, v)
	}
	return res
}

func (p *Prover) prove(attr string, v rule.Value) Outcome {
	// Closed world: the recorded value for an attribute is authoritative.
	if f, ok := p.base.Get(attr); ok {
		if f.Value.Equal(v) {
			return Proved
		}
		return Disproved
	}

	key := memoKey(attr, v)
	if out, ok := p.memo[key]; ok {
		return out
	}

	norm := rule.Norm(attr)
	if p.path[norm] {
		// Proving attr again while already proving attr: rule cycle.
		p.cyclic = true
		p.cyclePath = append(append([]string{}, p.order...), attr)
		return Unknown
	}
	p.path[norm] = true
	p.order = append(p.order, attr)
	defer func() {
		delete(p.path, norm)
		p.order = p.order[:len(p.order)-1]
	}()

	candidates := p.rulesConcluding(attr)
	if len(candidates) == 0 {
		p.memo[key] = Unknown
		return Unknown
	}

	for _, r := range candidates {
		if !r.Conclusion.Value.Equal(v) {
			continue
		}
		if premises, ok := p.proveConditions(r); ok {
			if err := p.base.AssertDerived(attr, v); err != nil {
				// A sub-proof settled the attribute on another value.
				p.memo[key] = Disproved
				return Disproved
			}
			p.just.Add(justify.Record{
				Fact:     justify.FactRef{Attr: attr, Value: v},
				RuleID:   r.ID,
				Premises: premises,
				Source:   justify.SourceBackward,
				RunID:    p.runID,
			})
			p.memo[key] = Proved
			return Proved
		}
	}

	// No rule established the goal value. If a rule concluding a
	// conflicting value proves, the closed world now refutes the goal.
	// The goal's own proof is over, so the attribute leaves the path.
	delete(p.path, norm)
	p.order = p.order[:len(p.order)-1]
	defer func() {
		p.path[norm] = true
		p.order = append(p.order, attr)
	}()
	for _, r := range candidates {
		if r.Conclusion.Value.Equal(v) {
			continue
		}
		if p.prove(attr, r.Conclusion.Value) == Proved {
			p.memo[key] = Disproved
			return Disproved
		}
	}

	p.memo[key] = Unknown
	return Unknown
}

// proveConditions establishes every condition of a rule, recursing into
// sub-goals for equality conditions on unknown attributes. Non-equality
// conditions are checked directly against the facts; when their attribute
// is itself derivable, its value is derived first and then compared.
func (p *Prover) proveConditions(r rule.Rule) ([]justify.FactRef, bool) {
	premises := make([]justify.FactRef, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		f, known := p.base.Get(c.Attr)
		if !known {
			if c.Op == rule.OpEq {
				if p.prove(c.Attr, c.Value) != Proved {
					return nil, false
				}
			} else {
				if !p.deriveAttr(c.Attr) {
					return nil, false
				}
			}
			f, known = p.base.Get(c.Attr)
			if !known {
				return nil, false
			}
		}
		if !c.Op.Eval(f.Value, c.Value) {
			return nil, false
		}
		premises = append(premises, justify.FactRef{Attr: f.Attr, Value: f.Value})
	}
	return premises, true
}

// deriveAttr tries to settle an attribute on any value the rules can
// conclude for it, in rule order.
func (p *Prover) deriveAttr(attr string) bool {
	for _, v := range p.base.GoalValues(attr) {
		if p.prove(attr, v) == Proved {
			return true
		}
	}
	return false
}

func (p *Prover) rulesConcluding(attr string) []rule.Rule {
	norm := rule.Norm(attr)
	var out []rule.Rule
	for _, r := range p.base.Rules() {
		if rule.Norm(r.Conclusion.Attr) == norm {
			out = append(out, r)
		}
	}
	return out
}

// Diagnose reports, for every rule that could conclude the goal, which
// conditions held and which failed against the current facts.
func (p *Prover) Diagnose(attr string, v rule.Value) []RuleDiagnosis {
	var out []RuleDiagnosis
	for _, r := range p.rulesConcluding(attr) {
		if !r.Conclusion.Value.Equal(v) {
			continue
		}
		diag := RuleDiagnosis{RuleID: r.ID, RuleText: r.String()}
		for _, c := range r.Conditions {
			st := ConditionStatus{Condition: c}
			if f, ok := p.base.Get(c.Attr); ok {
				st.Actual = f.Value
				st.Holds = c.Op.Eval(f.Value, c.Value)
			} else {
				st.Missing = true
			}
			diag.Conditions = append(diag.Conditions, st)
		}
		out = append(out, diag)
	}
	return out
}

func memoKey(attr string, v rule.Value) string {
	return rule.Norm(attr) + "\x00" + strings.ToLower(v.Text)
}
