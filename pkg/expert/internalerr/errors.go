package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrSyntax           = errors.New("syntax error")
	ErrRoleViolation    = errors.New("attribute role violation")
	ErrContradiction    = errors.New("contradictory fact value")
	ErrDuplicateID      = errors.New("duplicate rule id")
	ErrNotFound         = errors.New("not found")
	ErrMaxIterations    = errors.New("max iterations exceeded")
	ErrNoJustification  = errors.New("no justification recorded")
	ErrNothingToUndo    = errors.New("nothing to undo")
)
