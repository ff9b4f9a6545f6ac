package expert

import (
	"fmt"

	"github.com/cognicore/expert/pkg/expert/explain"
	"github.com/cognicore/expert/pkg/expert/infer"
	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/justify"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
	"github.com/cognicore/expert/pkg/expert/ruleio"
	"github.com/cognicore/expert/pkg/expert/store"
)

// Options configures a System.
type Options struct {
	// MaxRounds bounds forward chaining; 0 uses infer.DefaultMaxRounds.
	MaxRounds int
}

// System ties the knowledge base, the justification store and the two
// inference engines together and keeps a single-level undo snapshot
// spanning both. Every mutating operation is atomic: on failure the
// pre-state is restored, on success it becomes the undo point.
type System struct {
	base *kb.Base
	just *justify.Store
	opts Options
	undo *undoState
}

type undoState struct {
	base kb.Snapshot
	just map[string][]justify.Record
}

// New creates an empty System.
func New(opts Options) *System {
	return &System{
		base: kb.New(),
		just: justify.NewStore(),
		opts: opts,
	}
}

// mutate snapshots the pre-state, runs fn, and either commits the snapshot
// as the undo point or rolls back to it.
func (s *System) mutate(fn func() error) error {
	snap := undoState{base: s.base.Snapshot(), just: s.just.Snapshot()}
	if err := fn(); err != nil {
		s.base.Restore(snap.base)
		s.just.Restore(snap.just)
		return err
	}
	s.undo = &snap
	return nil
}

// Undo restores the state before the last successful mutating operation.
// History is depth 1: a second Undo without a mutation in between fails.
func (s *System) Undo() error {
	if s.undo == nil {
		return internalerr.ErrNothingToUndo
	}
	s.base.Restore(s.undo.base)
	s.just.Restore(s.undo.just)
	s.undo = nil
	return nil
}

// AddFact asserts a given fact. Overwriting an existing value invalidates
// the justifications that depended on it.
func (s *System) AddFact(attr string, v rule.Value, overwrite bool) error {
	return s.mutate(func() error {
		prev, had := s.base.Get(attr)
		if err := s.base.AddFact(attr, v, overwrite); err != nil {
			return err
		}
		if had && !prev.Value.Equal(v) {
			s.just.Invalidate(attr)
		}
		return nil
	})
}

// RemoveFact removes the fact for an attribute and invalidates dependent
// justifications.
func (s *System) RemoveFact(attr string) error {
	return s.mutate(func() error {
		if _, err := s.base.RemoveFact(attr); err != nil {
			return err
		}
		s.just.Invalidate(attr)
		return nil
	})
}

// AddRule stores an already-parsed rule and returns its ID.
func (s *System) AddRule(r rule.Rule) (int, error) {
	var id int
	err := s.mutate(func() error {
		var err error
		id, err = s.base.AddRule(r)
		return err
	})
	return id, err
}

// AddRuleText parses and stores one rule.
func (s *System) AddRuleText(text string) (int, error) {
	r, err := rule.ParseRule(text)
	if err != nil {
		return 0, err
	}
	return s.AddRule(r)
}

// RemoveRule removes a rule by ID.
func (s *System) RemoveRule(id int) error {
	return s.mutate(func() error { return s.base.RemoveRule(id) })
}

// ImportRules adds the parsed rules of a batch import. Rules that fail to
// store (duplicate ID, role violation) are skipped and reported; the rest
// go in. The whole import is one undo step.
func (s *System) ImportRules(res ruleio.Result) (added int, rejected []error) {
	s.mutate(func() error {
		for _, r := range res.Rules {
			if _, err := s.base.AddRule(r); err != nil {
				rejected = append(rejected, fmt.Errorf("%q: %w", r.Text, err))
				continue
			}
			added++
		}
		return nil
	})
	return added, rejected
}

// ForwardChain derives every fact reachable from the current ones and
// returns the run report. On ErrMaxIterations the base is left untouched.
func (s *System) ForwardChain() (infer.ForwardResult, error) {
	var res infer.ForwardResult
	err := s.mutate(func() error {
		var err error
		res, err = infer.Forward(s.base, s.just, infer.Options{MaxRounds: s.opts.MaxRounds})
		return err
	})
	return res, err
}

// Prove attempts to establish attr = value by backward chaining. Facts
// derived along the way stay in the base; the proof is one undo step.
func (s *System) Prove(attr string, v rule.Value) infer.Result {
	var res infer.Result
	s.mutate(func() error {
		res = infer.NewProver(s.base, s.just).Prove(attr, v)
		return nil
	})
	return res
}

// Why returns the primary justification of the fact for attr.
func (s *System) Why(attr string) (explain.Justification, error) {
	return explain.Why(s.base, s.just, attr)
}

// WhyAll returns every justification recorded for attr.
func (s *System) WhyAll(attr string) ([]explain.Justification, error) {
	return explain.WhyAll(s.base, s.just, attr)
}

// How returns the full derivation tree of the fact for attr.
func (s *System) How(attr string) (*explain.Node, error) {
	return explain.How(s.base, s.just, attr)
}

// Facts lists the current facts in insertion order.
func (s *System) Facts() []kb.Fact { return s.base.Facts() }

// Rules lists the current rules in insertion order.
func (s *System) Rules() []rule.Rule { return s.base.Rules() }

// Catalog exposes the attribute role catalog.
func (s *System) Catalog() *kb.Catalog { return s.base.Catalog() }

// ExampleValues suggests fact values for an attribute from the rule
// conditions mentioning it.
func (s *System) ExampleValues(attr string, max int) []rule.Value {
	return s.base.ExampleValues(attr, max)
}

// GoalValues suggests goal values for an attribute from the rule
// conclusions deriving it.
func (s *System) GoalValues(attr string) []rule.Value {
	return s.base.GoalValues(attr)
}

// Export serializes the knowledge base for persistence.
func (s *System) Export() store.Snapshot {
	return store.FromKB(s.base.Snapshot())
}

// Import replaces the knowledge base with a stored snapshot. Justification
// records do not survive serialization; explanations become available
// again after the next inference run.
func (s *System) Import(snap store.Snapshot) error {
	return s.mutate(func() error {
		kbSnap, err := store.ToKB(snap)
		if err != nil {
			return err
		}
		s.base.Restore(kbSnap)
		s.just.Restore(nil)
		return nil
	})
}
