package explain

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/expert/pkg/expert/infer"
	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/justify"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

// derived builds a base where C = 1 is derived from A = 1 through B = 1.
func derived(t *testing.T) (*kb.Base, *justify.Store) {
	t.Helper()
	b := kb.New()
	just := justify.NewStore()
	for _, text := range []string{
		"SE A = 1 ENTÃO B = 1",
		"SE B = 1 ENTÃO C = 1",
	} {
		r, err := rule.ParseRule(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if _, err := b.AddRule(r); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}
	if err := b.AddFact("A", rule.Number(1), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	if _, err := infer.Forward(b, just, infer.Options{}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	return b, just
}

func TestWhyDerived(t *testing.T) {
	b, just := derived(t)

	j, err := Why(b, just, "C")
	if err != nil {
		t.Fatalf("why: %v", err)
	}
	if j.RuleID != 2 {
		t.Errorf("expected rule #2, got #%d", j.RuleID)
	}
	if j.RuleText == "" {
		t.Error("rule text not resolved")
	}
	if len(j.Premises) != 1 || j.Premises[0].Attr != "B" {
		t.Errorf("premises wrong: %v", j.Premises)
	}
	if j.Stale {
		t.Error("fresh justification marked stale")
	}
}

func TestWhyErrors(t *testing.T) {
	b, just := derived(t)

	if _, err := Why(b, just, "Fantasma"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing fact: expected ErrNotFound, got %v", err)
	}
	// A is given: asserted, never derived.
	if _, err := Why(b, just, "A"); !errors.Is(err, internalerr.ErrNoJustification) {
		t.Errorf("given fact: expected ErrNoJustification, got %v", err)
	}
}

func TestWhyStaleAfterPremiseRemoved(t *testing.T) {
	b, just := derived(t)

	if _, err := b.RemoveFact("A"); err != nil {
		t.Fatalf("remove fact: %v", err)
	}

	j, err := Why(b, just, "B")
	if err != nil {
		t.Fatalf("why: %v", err)
	}
	if !j.Stale {
		t.Error("justification should be stale once its premise is gone")
	}
}

func TestHowTree(t *testing.T) {
	b, just := derived(t)

	n, err := How(b, just, "C")
	if err != nil {
		t.Fatalf("how: %v", err)
	}
	if n.Attr != "C" || n.RuleID != 2 {
		t.Fatalf("root wrong: %+v", n)
	}
	if len(n.Premises) != 1 || n.Premises[0].Attr != "B" {
		t.Fatalf("expected premise B, got %+v", n.Premises)
	}
	bNode := n.Premises[0]
	if bNode.RuleID != 1 || len(bNode.Premises) != 1 {
		t.Fatalf("B node wrong: %+v", bNode)
	}
	leaf := bNode.Premises[0]
	if leaf.Attr != "A" || leaf.Status != kb.StatusGiven || len(leaf.Premises) != 0 {
		t.Errorf("expected given leaf A, got %+v", leaf)
	}

	out := n.Render()
	for _, want := range []string{"C = 1 via rule #2", "B = 1 via rule #1", "A = 1 (given)"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHowStaleLeaf(t *testing.T) {
	b, just := derived(t)

	if _, err := b.RemoveFact("A"); err != nil {
		t.Fatalf("remove fact: %v", err)
	}

	n, err := How(b, just, "B")
	if err != nil {
		t.Fatalf("how: %v", err)
	}
	if !n.Stale {
		t.Error("root should be stale")
	}
	if len(n.Premises) != 1 || !n.Premises[0].Stale {
		t.Errorf("removed premise should appear as a stale leaf: %+v", n.Premises)
	}
}

func TestHowGivenFact(t *testing.T) {
	b, just := derived(t)

	n, err := How(b, just, "A")
	if err != nil {
		t.Fatalf("how: %v", err)
	}
	if n.Status != kb.StatusGiven || len(n.Premises) != 0 {
		t.Errorf("given fact should be a bare leaf: %+v", n)
	}
	if !strings.Contains(n.Render(), "(given)") {
		t.Errorf("render wrong: %s", n.Render())
	}
}
