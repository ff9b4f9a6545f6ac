// Package store defines the serialized form of a knowledge base: an
// ordered list of facts and an ordered list of rules, sufficient to
// round-trip through any structured format without loss. The sqlite
// subpackage keeps named snapshots in a database; kbfile reads and writes
// single-snapshot YAML files.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// Snapshot is a serializable knowledge base.
type Snapshot struct {
	Facts []FactRecord `yaml:"facts"`
	Rules []RuleRecord `yaml:"rules"`
}

// FactRecord is one serialized fact.
type FactRecord struct {
	Attr   string `yaml:"attr"`
	Value  string `yaml:"value"`
	Status string `yaml:"status"`
}

// RuleRecord is one serialized rule.
type RuleRecord struct {
	ID         int               `yaml:"id"`
	Text       string            `yaml:"text,omitempty"`
	Conditions []ConditionRecord `yaml:"conditions"`
	Conclusion ConclusionRecord  `yaml:"conclusion"`
}

// ConditionRecord is one serialized rule condition.
type ConditionRecord struct {
	Attr  string `yaml:"attr"`
	Op    string `yaml:"op"`
	Value string `yaml:"value"`
}

// ConclusionRecord is a serialized rule conclusion.
type ConclusionRecord struct {
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

// Info describes a stored snapshot.
type Info struct {
	Name    string
	SavedAt time.Time
	Facts   int
	Rules   int
}

// Store persists named knowledge-base snapshots.
type Store interface {
	Close() error
	SaveSnapshot(ctx context.Context, name string, snap Snapshot) error
	LoadSnapshot(ctx context.Context, name string) (Snapshot, error)
	ListSnapshots(ctx context.Context) ([]Info, error)
}

// FromKB serializes a knowledge-base snapshot.
func FromKB(s kb.Snapshot) Snapshot {
	var out Snapshot
	for _, f := range s.Facts {
		out.Facts = append(out.Facts, FactRecord{
			Attr:   f.Attr,
			Value:  f.Value.Encoded(),
			Status: string(f.Status),
		})
	}
	for _, r := range s.Rules {
		rec := RuleRecord{
			ID:   r.ID,
			Text: r.Text,
			Conclusion: ConclusionRecord{
				Attr:  r.Conclusion.Attr,
				Value: r.Conclusion.Value.Encoded(),
			},
		}
		for _, c := range r.Conditions {
			rec.Conditions = append(rec.Conditions, ConditionRecord{
				Attr:  c.Attr,
				Op:    string(c.Op),
				Value: c.Value.Encoded(),
			})
		}
		out.Rules = append(out.Rules, rec)
	}
	return out
}

// ToKB rebuilds a knowledge-base snapshot. The next rule ID resumes past
// the highest stored ID.
func ToKB(snap Snapshot) (kb.Snapshot, error) {
	out := kb.Snapshot{NextRuleID: 1}
	for _, f := range snap.Facts {
		status := kb.Status(f.Status)
		if status != kb.StatusGiven && status != kb.StatusDerived {
			return kb.Snapshot{}, fmt.Errorf("fact %q: unknown status %q", f.Attr, f.Status)
		}
		out.Facts = append(out.Facts, kb.Fact{
			Attr:   f.Attr,
			Value:  rule.ParseValue(f.Value),
			Status: status,
		})
	}
	for _, r := range snap.Rules {
		if r.ID <= 0 {
			return kb.Snapshot{}, fmt.Errorf("rule %q: missing id", r.Text)
		}
		rr := rule.Rule{
			ID:   r.ID,
			Text: r.Text,
			Conclusion: rule.Conclusion{
				Attr:  r.Conclusion.Attr,
				Value: rule.ParseValue(r.Conclusion.Value),
			},
		}
		for _, c := range r.Conditions {
			rr.Conditions = append(rr.Conditions, rule.Condition{
				Attr:  c.Attr,
				Op:    rule.Op(c.Op),
				Value: rule.ParseValue(c.Value),
			})
		}
		out.Rules = append(out.Rules, rr)
		if r.ID >= out.NextRuleID {
			out.NextRuleID = r.ID + 1
		}
	}
	return out, nil
}
