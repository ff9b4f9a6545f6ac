// Package expert is a small rule-based reasoning engine. A System holds
// attribute/value facts and SE ... ENTÃO production rules, derives new
// facts by forward chaining, proves or refutes goals by backward chaining,
// and can explain why a fact is true and how it was derived.
//
// A System is single-writer: callers embedding it must serialize access,
// there is no internal locking.
package expert
