// Package infer implements the two inference engines: forward chaining to
// fixpoint and backward goal proving. Both read the knowledge base, assert
// derived facts into it and record justifications for everything they
// derive.
package infer

import (
	"fmt"

	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/justify"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// DefaultMaxRounds bounds forward chaining on pathological rule sets.
const DefaultMaxRounds = 50

// Options configures a forward-chaining run.
type Options struct {
	MaxRounds int
}

// Conflict reports a rule that was satisfied but whose conclusion clashed
// with an existing value. First-wins: the earlier value stands and the
// rejection is surfaced here instead of overwriting.
type Conflict struct {
	RuleID int
	Attr   string
	Have   rule.Value
	Want   rule.Value
}

func (c Conflict) String() string {
	return fmt.Sprintf("rule #%d wanted %s = %s but %s already holds", c.RuleID, c.Attr, c.Want, c.Have)
}

// ForwardResult reports one forward-chaining run. Derived lists only the
// facts newly asserted by this run, in derivation order.
type ForwardResult struct {
	RunID     string
	Derived   []kb.Fact
	Conflicts []Conflict
	Rounds    int
}

// Forward applies every rule whose conditions hold against the current
// facts, round after round, until a full pass fires nothing. Rules are
// tried in knowledge-base order; a rule whose conclusion already holds is
// skipped, except to rebuild a missing justification for a derived fact
// restored from a snapshot. Exceeding MaxRounds aborts with
// ErrMaxIterations.
func Forward(base *kb.Base, just *justify.Store, opts Options) (ForwardResult, error) {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	res := ForwardResult{RunID: just.NewRunID()}
	conflicted := make(map[int]bool)

	for round := 1; round <= maxRounds; round++ {
		res.Rounds = round

		fired := false
		for _, r := range base.Rules() {
			if base.Holds(r.Conclusion.Attr, r.Conclusion.Value) {
				// Justification records do not survive serialization.
				// When the derived fact came from a loaded snapshot,
				// re-record how this run would have produced it.
				if f, _ := base.Get(r.Conclusion.Attr); f.Status == kb.StatusDerived {
					if _, ok := just.Primary(r.Conclusion.Attr); !ok {
						if premises, ok := conditionsHold(base, r.Conditions); ok {
							just.Add(justify.Record{
								Fact:     justify.FactRef{Attr: r.Conclusion.Attr, Value: r.Conclusion.Value},
								RuleID:   r.ID,
								Premises: premises,
								Source:   justify.SourceForward,
								RunID:    res.RunID,
								Round:    round,
							})
						}
					}
				}
				continue
			}
			premises, ok := conditionsHold(base, r.Conditions)
			if !ok {
				continue
			}
			if err := base.AssertDerived(r.Conclusion.Attr, r.Conclusion.Value); err != nil {
				if have, exists := base.Get(r.Conclusion.Attr); exists && !conflicted[r.ID] {
					conflicted[r.ID] = true
					res.Conflicts = append(res.Conflicts, Conflict{
						RuleID: r.ID,
						Attr:   r.Conclusion.Attr,
						Have:   have.Value,
						Want:   r.Conclusion.Value,
					})
				}
				continue
			}
			just.Add(justify.Record{
				Fact:     justify.FactRef{Attr: r.Conclusion.Attr, Value: r.Conclusion.Value},
				RuleID:   r.ID,
				Premises: premises,
				Source:   justify.SourceForward,
				RunID:    res.RunID,
				Round:    round,
			})
			res.Derived = append(res.Derived, kb.Fact{
				Attr:   r.Conclusion.Attr,
				Value:  r.Conclusion.Value,
				Status: kb.StatusDerived,
			})
			fired = true
		}

		if !fired {
			return res, nil
		}
	}

	return res, fmt.Errorf("no fixpoint after %d rounds: %w", maxRounds, internalerr.ErrMaxIterations)
}

// conditionsHold checks every condition against the current facts and
// returns the exact facts used, in condition order.
func conditionsHold(base *kb.Base, conds []rule.Condition) ([]justify.FactRef, bool) {
	used := make([]justify.FactRef, 0, len(conds))
	for _, c := range conds {
		f, ok := base.Get(c.Attr)
		if !ok || !c.Op.Eval(f.Value, c.Value) {
			return nil, false
		}
		used = append(used, justify.FactRef{Attr: f.Attr, Value: f.Value})
	}
	return used, true
}
