package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/expert/pkg/expert/internalerr"
)

// SyntaxError reports a malformed rule, pointing at the offending segment.
type SyntaxError struct {
	Segment string
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Segment == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Segment)
}

func (e *SyntaxError) Unwrap() error { return internalerr.ErrSyntax }

var (
	entaoRE  = regexp.MustCompile(`(?i)\bENT[ÃA]O\b|->|=>`)
	seRE     = regexp.MustCompile(`(?i)^\s*SE\b`)
	andRE    = regexp.MustCompile(`(?i)\bE\b`)
	condRE   = regexp.MustCompile(`^\s*([\p{L}\p{N}_]+)\s*(==|!=|>=|<=|=|>|<|≠|≥|≤)\s*(.+?)\s*$`)
	wordOpRE = regexp.MustCompile(`(?i)^\s*([\p{L}\p{N}_]+)\s+(é|eh)\s+(.+?)\s*$`)
)

// ParseRule parses one rule in the form
//
//	SE <cond> (E <cond>)* ENTÃO <attr> = <valor>
//
// Keywords are case-insensitive; ENTAO, -> and => are accepted for ENTÃO.
// A condition is "<attr> <op> <valor>" or "<attr> <valor>" with equality
// implied. Parsing is pure: nothing is stored.
func ParseRule(text string) (Rule, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Rule{}, &SyntaxError{Reason: "empty rule"}
	}

	halves := entaoRE.Split(trimmed, -1)
	if len(halves) != 2 {
		return Rule{}, &SyntaxError{Segment: trimmed, Reason: "rule must contain exactly one ENTÃO"}
	}
	lhs, rhs := halves[0], halves[1]

	loc := seRE.FindStringIndex(lhs)
	if loc == nil {
		return Rule{}, &SyntaxError{Segment: strings.TrimSpace(lhs), Reason: "rule must start with SE"}
	}
	lhs = lhs[loc[1]:]
	if strings.TrimSpace(lhs) == "" {
		return Rule{}, &SyntaxError{Segment: trimmed, Reason: "empty condition list"}
	}

	var conds []Condition
	for _, seg := range andRE.Split(lhs, -1) {
		if strings.TrimSpace(seg) == "" {
			return Rule{}, &SyntaxError{Segment: strings.TrimSpace(lhs), Reason: "empty condition"}
		}
		cond, err := parseCondition(seg)
		if err != nil {
			return Rule{}, err
		}
		conds = append(conds, cond)
	}

	concl, err := parseCondition(rhs)
	if err != nil {
		return Rule{}, &SyntaxError{Segment: strings.TrimSpace(rhs), Reason: "conclusion must be '<attr> = <valor>'"}
	}
	if concl.Op != OpEq {
		return Rule{}, &SyntaxError{Segment: strings.TrimSpace(rhs), Reason: "conclusion must use equality"}
	}

	return Rule{
		Conditions: conds,
		Conclusion: Conclusion{Attr: concl.Attr, Value: concl.Value},
		Text:       trimmed,
	}, nil
}

// ParseFact parses a standalone "<attr> = <valor>" assertion, the form the
// interactive shell and fact files use.
func ParseFact(text string) (attr string, v Value, err error) {
	cond, err := parseCondition(text)
	if err != nil {
		return "", Value{}, err
	}
	if cond.Op != OpEq {
		return "", Value{}, &SyntaxError{Segment: strings.TrimSpace(text), Reason: "fact must use equality"}
	}
	return cond.Attr, cond.Value, nil
}

func parseCondition(seg string) (Condition, error) {
	if m := condRE.FindStringSubmatch(seg); m != nil {
		return Condition{Attr: m[1], Op: canonicalOp(m[2]), Value: ParseValue(m[3])}, nil
	}
	if m := wordOpRE.FindStringSubmatch(seg); m != nil {
		return Condition{Attr: m[1], Op: OpEq, Value: ParseValue(m[3])}, nil
	}
	// Implied equality: "<attr> <valor>".
	fields := strings.Fields(seg)
	if len(fields) >= 2 {
		return Condition{Attr: fields[0], Op: OpEq, Value: ParseValue(strings.Join(fields[1:], " "))}, nil
	}
	return Condition{}, &SyntaxError{Segment: strings.TrimSpace(seg), Reason: "cannot parse condition"}
}

func canonicalOp(tok string) Op {
	switch tok {
	case "==", "=":
		return OpEq
	case "!=", "≠":
		return OpNe
	case ">=", "≥":
		return OpGe
	case "<=", "≤":
		return OpLe
	case ">":
		return OpGt
	case "<":
		return OpLt
	}
	return OpEq
}
