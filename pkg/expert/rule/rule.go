package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a typed attribute value. Bare numbers compare numerically,
// everything else compares as case-folded text.
type Value struct {
	Text    string
	Num     float64
	Numeric bool
}

// ParseValue interprets a raw token: quoted strings are unquoted and stay
// textual, unquoted numbers become numeric, anything else is plain text.
func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			return Value{Text: raw[1 : len(raw)-1]}
		}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Text: raw, Num: n, Numeric: true}
	}
	return Value{Text: raw}
}

// Number builds a numeric Value.
func Number(n float64) Value {
	return Value{Text: strconv.FormatFloat(n, 'f', -1, 64), Num: n, Numeric: true}
}

func (v Value) String() string { return v.Text }

// Encoded returns a form ParseValue reads back losslessly: textual values
// that would otherwise re-parse as numbers are quoted.
func (v Value) Encoded() string {
	if !v.Numeric {
		if _, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64); err == nil {
			return "'" + v.Text + "'"
		}
	}
	return v.Text
}

func (v Value) number() (float64, bool) {
	if v.Numeric {
		return v.Num, true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
	return n, err == nil
}

// Equal compares two values: numerically when both sides are numbers,
// case-insensitively as text otherwise.
func (v Value) Equal(o Value) bool {
	if an, ok := v.number(); ok {
		if bn, ok := o.number(); ok {
			return an == bn
		}
	}
	return strings.EqualFold(v.Text, o.Text)
}

// Op is a condition comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpGt Op = ">"
	OpLt Op = "<"
	OpGe Op = ">="
	OpLe Op = "<="
)

// Eval applies the operator to (fact value, stated value). Ordering
// operators require both sides to be numbers and are false otherwise.
func (op Op) Eval(a, b Value) bool {
	switch op {
	case OpEq:
		return a.Equal(b)
	case OpNe:
		return !a.Equal(b)
	case OpGt, OpLt, OpGe, OpLe:
		an, aok := a.number()
		bn, bok := b.number()
		if !aok || !bok {
			return false
		}
		switch op {
		case OpGt:
			return an > bn
		case OpLt:
			return an < bn
		case OpGe:
			return an >= bn
		default:
			return an <= bn
		}
	}
	return false
}

// Condition is one conjunct of a rule's antecedent.
type Condition struct {
	Attr  string
	Op    Op
	Value Value
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Attr, c.Op, c.Value)
}

// Conclusion is a rule's consequent, always an assignment.
type Conclusion struct {
	Attr  string
	Value Value
}

func (c Conclusion) String() string {
	return fmt.Sprintf("%s = %s", c.Attr, c.Value)
}

// Rule is an ordered conjunction of conditions with a single conclusion.
// ID 0 means "not yet stored"; the knowledge base assigns stable IDs.
type Rule struct {
	ID         int
	Conditions []Condition
	Conclusion Conclusion
	Text       string
}

// String renders the rule back in SE ... ENTÃO form. Text is preferred
// when the rule came from source text.
func (r Rule) String() string {
	if r.Text != "" {
		return r.Text
	}
	parts := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("SE %s ENTÃO %s", strings.Join(parts, " E "), r.Conclusion)
}

// Norm is the canonical form used to match attribute names and identify
// facts. Display always uses the verbatim spelling.
func Norm(attr string) string {
	return strings.ToLower(strings.TrimSpace(attr))
}
