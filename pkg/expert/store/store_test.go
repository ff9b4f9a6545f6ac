package store

import (
	"testing"

	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
)

func buildBase(t *testing.T) *kb.Base {
	t.Helper()
	b := kb.New()
	for _, text := range []string{
		"SE Emprego = Sim E Idade > 25 ENTÃO Elegivel = Sim",
		"SE Elegivel = Sim ENTÃO Aprovado = Sim",
	} {
		r, err := rule.ParseRule(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if _, err := b.AddRule(r); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}
	if err := b.AddFact("Emprego", rule.ParseValue("Sim"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	if err := b.AddFact("Idade", rule.ParseValue("30"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	b := buildBase(t)

	snap := FromKB(b.Snapshot())
	back, err := ToKB(snap)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	restored := kb.New()
	restored.Restore(back)

	if len(restored.Facts()) != 2 || len(restored.Rules()) != 2 {
		t.Fatalf("lost content: %d facts, %d rules", len(restored.Facts()), len(restored.Rules()))
	}
	if !restored.Holds("Idade", rule.Number(30)) {
		t.Error("numeric fact not restored")
	}
	r, ok := restored.Rule(1)
	if !ok || len(r.Conditions) != 2 || r.Conditions[1].Op != rule.OpGt {
		t.Errorf("rule 1 wrong: %+v", r)
	}
	if r.Text == "" {
		t.Error("source text lost")
	}
	if restored.Catalog().Role("Elegivel") != kb.RoleBoth {
		t.Error("catalog not rebuilt from restored rules")
	}

	// IDs keep advancing past the stored ones.
	extra, err := rule.ParseRule("SE Aprovado = Sim ENTÃO Notificar = Sim")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := restored.AddRule(extra)
	if err != nil {
		t.Fatalf("add rule after restore: %v", err)
	}
	if id != 3 {
		t.Errorf("expected next ID 3, got %d", id)
	}
}

func TestRoundTripQuotedNumericText(t *testing.T) {
	b := kb.New()
	// Textual value that would re-parse as a number without quoting.
	if err := b.AddFact("Codigo", rule.ParseValue("'30'"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}

	back, err := ToKB(FromKB(b.Snapshot()))
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(back.Facts) != 1 {
		t.Fatalf("facts lost: %v", back.Facts)
	}
	v := back.Facts[0].Value
	if v.Numeric || v.Text != "30" {
		t.Errorf("textual 30 came back as %+v", v)
	}
}

func TestToKBRejectsBadRecords(t *testing.T) {
	if _, err := ToKB(Snapshot{Facts: []FactRecord{{Attr: "A", Value: "1", Status: "guessed"}}}); err == nil {
		t.Error("unknown status accepted")
	}
	if _, err := ToKB(Snapshot{Rules: []RuleRecord{{ID: 0}}}); err == nil {
		t.Error("rule without id accepted")
	}
}
