package rule

import "testing"

func TestOpEval(t *testing.T) {
	cases := []struct {
		a    string
		op   Op
		b    string
		want bool
	}{
		{"Sim", OpEq, "sim", true},
		{"Sim", OpEq, "Nao", false},
		{"Sim", OpNe, "Nao", true},
		{"30", OpGt, "25", true},
		{"30", OpGt, "30", false},
		{"30", OpGe, "30", true},
		{"10", OpLt, "25", true},
		{"25", OpLe, "25", true},
		{"abc", OpGt, "25", false}, // ordering needs numbers
		{"30", OpLt, "abc", false},
	}
	for _, tc := range cases {
		got := tc.op.Eval(ParseValue(tc.a), ParseValue(tc.b))
		if got != tc.want {
			t.Errorf("%q %s %q = %v, want %v", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestValueEqualNumericCoercion(t *testing.T) {
	// "30" asserted as text still compares numerically with 30.0.
	if !ParseValue("30").Equal(Number(30)) {
		t.Error("expected 30 == 30.0")
	}
	if !ParseValue("30.0").Equal(ParseValue("30")) {
		t.Error("expected 30.0 == 30")
	}
}

func TestValueEncodedRoundTrip(t *testing.T) {
	values := []Value{
		ParseValue("30"),
		ParseValue("Sim"),
		ParseValue("'30'"), // textual value that looks numeric
		ParseValue("38.7"),
	}
	for _, v := range values {
		back := ParseValue(v.Encoded())
		if back.Text != v.Text || back.Numeric != v.Numeric {
			t.Errorf("round trip of %+v gave %+v (encoded %q)", v, back, v.Encoded())
		}
	}
}

func TestNorm(t *testing.T) {
	if Norm("  Idade ") != "idade" {
		t.Errorf("Norm wrong: %q", Norm("  Idade "))
	}
}
