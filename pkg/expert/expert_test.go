package expert

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/expert/pkg/expert/infer"
	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/kb"
	"github.com/cognicore/expert/pkg/expert/rule"
	"github.com/cognicore/expert/pkg/expert/ruleio"
)

func eligibility(t *testing.T) *System {
	t.Helper()
	s := New(Options{})
	for _, text := range []string{
		"SE Emprego = Sim E Idade > 25 ENTÃO Elegivel = Sim",
		"SE Elegivel = Sim ENTÃO Aprovado = Sim",
	} {
		if _, err := s.AddRuleText(text); err != nil {
			t.Fatalf("add rule %q: %v", text, err)
		}
	}
	if err := s.AddFact("Emprego", rule.ParseValue("Sim"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	if err := s.AddFact("Idade", rule.ParseValue("30"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	return s
}

func TestForwardChainScenario(t *testing.T) {
	s := eligibility(t)

	res, err := s.ForwardChain()
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(res.Derived) != 2 {
		t.Fatalf("expected Elegivel and Aprovado, got %v", res.Derived)
	}

	j, err := s.Why("Aprovado")
	if err != nil {
		t.Fatalf("why: %v", err)
	}
	if j.RuleID != 2 || len(j.Premises) != 1 {
		t.Errorf("justification wrong: %+v", j)
	}

	n, err := s.How("Aprovado")
	if err != nil {
		t.Fatalf("how: %v", err)
	}
	if !strings.Contains(n.Render(), "Emprego = Sim (given)") {
		t.Errorf("derivation tree does not reach the given facts:\n%s", n.Render())
	}
}

func TestProveScenario(t *testing.T) {
	s := eligibility(t)

	res := s.Prove("Aprovado", rule.ParseValue("Sim"))
	if res.Outcome != infer.Proved {
		t.Fatalf("expected proved, got %s", res.Outcome)
	}
	// Sub-goals persist, so Why works after a proof too.
	if _, err := s.Why("Elegivel"); err != nil {
		t.Errorf("why after prove: %v", err)
	}
}

func TestUndoSpansBaseAndJustifications(t *testing.T) {
	s := eligibility(t)

	if _, err := s.ForwardChain(); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}

	for _, attr := range []string{"Elegivel", "Aprovado"} {
		for _, f := range s.Facts() {
			if f.Attr == attr {
				t.Errorf("derived fact %q survived undo", attr)
			}
		}
		if _, err := s.Why(attr); !errors.Is(err, internalerr.ErrNotFound) {
			t.Errorf("justification for %q survived undo: %v", attr, err)
		}
	}

	// Depth 1: no second undo.
	if err := s.Undo(); !errors.Is(err, internalerr.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestFailedMutationRollsBack(t *testing.T) {
	s := eligibility(t)

	// Aprovado is a conclusion-only attribute, so the assertion must fail
	// and leave everything as it was.
	err := s.AddFact("Aprovado", rule.ParseValue("Sim"), false)
	if !errors.Is(err, internalerr.ErrRoleViolation) {
		t.Fatalf("expected ErrRoleViolation, got %v", err)
	}
	if len(s.Facts()) != 2 {
		t.Errorf("failed add changed the facts: %v", s.Facts())
	}

	// The failed call is not an undo point: undoing reverts the last
	// successful mutation instead.
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(s.Facts()) != 1 {
		t.Errorf("undo should drop the Idade fact, got %v", s.Facts())
	}
}

func TestOverwriteInvalidatesJustifications(t *testing.T) {
	s := eligibility(t)
	if _, err := s.ForwardChain(); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if err := s.AddFact("Idade", rule.ParseValue("20"), true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	j, err := s.Why("Elegivel")
	if err != nil {
		t.Fatalf("why: %v", err)
	}
	if !j.Stale {
		t.Error("justification should be stale after its premise changed")
	}
}

func TestImportRulesBatch(t *testing.T) {
	s := New(Options{})
	res, err := ruleio.ParseLines(strings.NewReader(
		"SE A = 1 ENTÃO B = 1\nSE B = 1 ENTÃO C = 1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	added, rejected := s.ImportRules(res)
	if added != 2 || len(rejected) != 0 {
		t.Fatalf("added %d, rejected %v", added, rejected)
	}

	// Duplicate conclusion of a given fact gets rejected, the rest go in.
	if err := s.AddFact("D", rule.ParseValue("1"), false); err != nil {
		t.Fatalf("add fact: %v", err)
	}
	res, _ = ruleio.ParseLines(strings.NewReader(
		"SE C = 1 ENTÃO D = 1\nSE C = 1 ENTÃO E1 = 1\n"))
	added, rejected = s.ImportRules(res)
	if added != 1 || len(rejected) != 1 {
		t.Fatalf("added %d, rejected %v", added, rejected)
	}

	// One undo step drops the whole batch.
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(s.Rules()) != 2 {
		t.Errorf("undo should drop the second batch, got %v", s.Rules())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := eligibility(t)
	if _, err := s.ForwardChain(); err != nil {
		t.Fatalf("forward: %v", err)
	}

	snap := s.Export()

	restored := New(Options{})
	if err := restored.Import(snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(restored.Facts()) != len(s.Facts()) || len(restored.Rules()) != len(s.Rules()) {
		t.Fatalf("content lost: %d facts, %d rules", len(restored.Facts()), len(restored.Rules()))
	}
	if restored.Catalog().Role("Elegivel") != kb.RoleBoth {
		t.Error("catalog not rebuilt on import")
	}

	// Justifications do not survive serialization but come back with the
	// next run.
	if _, err := restored.Why("Aprovado"); !errors.Is(err, internalerr.ErrNoJustification) {
		t.Errorf("expected ErrNoJustification after import, got %v", err)
	}
	if _, err := restored.ForwardChain(); err != nil {
		t.Fatalf("forward after import: %v", err)
	}
	if _, err := restored.Why("Aprovado"); err != nil {
		t.Errorf("why after re-running: %v", err)
	}
}

func TestCatalogSuggestions(t *testing.T) {
	s := eligibility(t)

	examples := s.ExampleValues("Idade", 5)
	if len(examples) != 1 || examples[0].Num != 25 {
		t.Errorf("ExampleValues = %v", examples)
	}
	goals := s.GoalValues("Aprovado")
	if len(goals) != 1 || goals[0].Text != "Sim" {
		t.Errorf("GoalValues = %v", goals)
	}
}
