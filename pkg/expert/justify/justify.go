// Package justify records, for every derived fact, which rule produced it
// and which facts satisfied that rule's conditions. The explanation engine
// reads these records; the inference engines write them.
package justify

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/expert/pkg/expert/rule"
)

// Source marks which engine derived a fact.
type Source string

const (
	SourceForward  Source = "forward"
	SourceBackward Source = "backward"
)

// FactRef identifies a fact as it stood when a rule fired.
type FactRef struct {
	Attr  string
	Value rule.Value
}

// Record is one justification: the rule that produced a derived fact and
// the exact supporting facts used, in condition order. RunID groups all
// records of a single inference run; Round is the forward-chaining pass
// that fired the rule (0 for backward proofs). Stale means a supporting
// fact has since been removed or overwritten.
type Record struct {
	Fact     FactRef
	RuleID   int
	Premises []FactRef
	Source   Source
	RunID    string
	Round    int
	Stale    bool
}

// Store keeps justification records per attribute. The first record for an
// attribute is the primary one used for acyclic explanation; independent
// later derivations of the same fact append as alternatives.
type Store struct {
	recs    map[string][]Record // rule.Norm(attr) -> records
	entropy *ulid.MonotonicEntropy
}

// NewStore creates an empty justification store.
func NewStore() *Store {
	return &Store{
		recs:    make(map[string][]Record),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewRunID mints a ULID identifying one inference run.
func (s *Store) NewRunID() string {
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// Add appends a record. The first record for an attribute becomes primary.
func (s *Store) Add(rec Record) {
	key := rule.Norm(rec.Fact.Attr)
	s.recs[key] = append(s.recs[key], rec)
}

// Primary returns the first justification recorded for an attribute.
func (s *Store) Primary(attr string) (Record, bool) {
	recs := s.recs[rule.Norm(attr)]
	if len(recs) == 0 {
		return Record{}, false
	}
	return recs[0], true
}

// All returns every justification recorded for an attribute, primary first.
func (s *Store) All(attr string) []Record {
	recs := s.recs[rule.Norm(attr)]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// Invalidate drops the attribute's own records and marks every record that
// used the attribute as a premise stale. Invalidation is single-level: the
// next inference pass rebuilds anything downstream.
func (s *Store) Invalidate(attr string) {
	key := rule.Norm(attr)
	delete(s.recs, key)
	for k, recs := range s.recs {
		for i := range recs {
			for _, p := range recs[i].Premises {
				if rule.Norm(p.Attr) == key {
					recs[i].Stale = true
					break
				}
			}
		}
		s.recs[k] = recs
	}
}

// Snapshot deep-copies all records for single-level undo.
func (s *Store) Snapshot() map[string][]Record {
	out := make(map[string][]Record, len(s.recs))
	for k, recs := range s.recs {
		cp := make([]Record, len(recs))
		for i, rec := range recs {
			prem := make([]FactRef, len(rec.Premises))
			copy(prem, rec.Premises)
			rec.Premises = prem
			cp[i] = rec
		}
		out[k] = cp
	}
	return out
}

// Restore replaces the store's records with a snapshot.
func (s *Store) Restore(snap map[string][]Record) {
	s.recs = make(map[string][]Record, len(snap))
	for k, recs := range snap {
		cp := make([]Record, len(recs))
		for i, rec := range recs {
			prem := make([]FactRef, len(rec.Premises))
			copy(prem, rec.Premises)
			rec.Premises = prem
			cp[i] = rec
		}
		s.recs[k] = cp
	}
}
