// Package explain answers "why is this fact true" and "how was it derived"
// by walking the justification store. Why is a single hop; How is the full
// recursive chain down to given facts.
package explain

import (
	"fmt"
	"strings"

	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/justify"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// Justification is the answer to Why: the primary record for a derived
// fact, resolved against the current rule set.
type Justification struct {
	Attr     string
	Value    rule.Value
	RuleID   int
	RuleText string
	Premises []justify.FactRef
	Source   justify.Source
	Stale    bool
}

// Why returns the primary justification of the fact currently held for an
// attribute. Given facts have none: they were asserted, not derived.
func Why(base *kb.Base, store *justify.Store, attr string) (Justification, error) {
	f, ok := base.Get(attr)
	if !ok {
		return Justification{}, fmt.Errorf("fact %q: %w", attr, internalerr.ErrNotFound)
	}
	if f.Status == kb.StatusGiven {
		return Justification{}, fmt.Errorf("%q is a given fact: %w", attr, internalerr.ErrNoJustification)
	}
	rec, ok := store.Primary(attr)
	if !ok {
		return Justification{}, fmt.Errorf("derived fact %q: %w", attr, internalerr.ErrNoJustification)
	}
	return resolve(base, f, rec), nil
}

// WhyAll returns every justification recorded for the attribute, primary
// first, for facts independently derived by more than one rule.
func WhyAll(base *kb.Base, store *justify.Store, attr string) ([]Justification, error) {
	f, ok := base.Get(attr)
	if !ok {
		return nil, fmt.Errorf("fact %q: %w", attr, internalerr.ErrNotFound)
	}
	recs := store.All(attr)
	if len(recs) == 0 {
		return nil, fmt.Errorf("fact %q: %w", attr, internalerr.ErrNoJustification)
	}
	out := make([]Justification, len(recs))
	for i, rec := range recs {
		out[i] = resolve(base, f, rec)
	}
	return out, nil
}

func resolve(base *kb.Base, f kb.Fact, rec justify.Record) Justification {
	j := Justification{
		Attr:     f.Attr,
		Value:    f.Value,
		RuleID:   rec.RuleID,
		Premises: rec.Premises,
		Source:   rec.Source,
		Stale:    rec.Stale,
	}
	if r, ok := base.Rule(rec.RuleID); ok {
		j.RuleText = r.String()
	}
	// A premise that no longer holds with its recorded value also makes
	// the justification stale, even before the store is told.
	for _, p := range rec.Premises {
		if !base.Holds(p.Attr, p.Value) {
			j.Stale = true
		}
	}
	return j
}

// Node is one step of a derivation tree. Premises are the supporting
// facts, themselves expanded when derived. Cycle marks a branch cut by the
// guard that keeps any fact from appearing twice along one path.
type Node struct {
	Attr     string
	Value    rule.Value
	Status   kb.Status
	RuleID   int
	RuleText string
	Stale    bool
	Cycle    bool
	Premises []*Node
}

// How returns the full derivation tree for the fact currently held for an
// attribute, terminating at given facts.
func How(base *kb.Base, store *justify.Store, attr string) (*Node, error) {
	f, ok := base.Get(attr)
	if !ok {
		return nil, fmt.Errorf("fact %q: %w", attr, internalerr.ErrNotFound)
	}
	return expand(base, store, f, make(map[string]bool)), nil
}

func expand(base *kb.Base, store *justify.Store, f kb.Fact, path map[string]bool) *Node {
	n := &Node{Attr: f.Attr, Value: f.Value, Status: f.Status}

	key := rule.Norm(f.Attr)
	if path[key] {
		n.Cycle = true
		return n
	}
	if f.Status == kb.StatusGiven {
		return n
	}

	rec, ok := store.Primary(f.Attr)
	if !ok {
		return n
	}
	j := resolve(base, f, rec)
	n.RuleID = j.RuleID
	n.RuleText = j.RuleText
	n.Stale = j.Stale

	path[key] = true
	defer delete(path, key)

	for _, p := range rec.Premises {
		pf, ok := base.Get(p.Attr)
		if !ok || !pf.Value.Equal(p.Value) {
			// The supporting fact is gone or changed since derivation.
			n.Premises = append(n.Premises, &Node{
				Attr:   p.Attr,
				Value:  p.Value,
				Status: kb.StatusDerived,
				Stale:  true,
			})
			continue
		}
		n.Premises = append(n.Premises, expand(base, store, pf, path))
	}
	return n
}

// Render writes the tree as indented text for the shell.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b, 0)
	return b.String()
}

func (n *Node) render(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	switch {
	case n.Cycle:
		fmt.Fprintf(b, "%s- %s = %s (cycle, not expanded)\n", pad, n.Attr, n.Value)
	case n.Status == kb.StatusGiven:
		fmt.Fprintf(b, "%s- %s = %s (given)\n", pad, n.Attr, n.Value)
	case n.Stale && n.RuleID == 0:
		fmt.Fprintf(b, "%s- %s = %s (stale: support removed)\n", pad, n.Attr, n.Value)
	default:
		fmt.Fprintf(b, "%s- %s = %s via rule #%d", pad, n.Attr, n.Value, n.RuleID)
		if n.RuleText != "" {
			fmt.Fprintf(b, " (%q)", n.RuleText)
		}
		if n.Stale {
			b.WriteString(" [stale]")
		}
		b.WriteString("\n")
	}
	for _, p := range n.Premises {
		p.render(b, depth+1)
	}
}
