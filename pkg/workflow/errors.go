package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a business rule failure.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindValidationFailed   Kind = "validation_failed"
	KindForbidden          Kind = "forbidden"
)

// RuleError is a business rule failure. Message is meant for end users, verbatim.
// Any other error returned by the engine is an infrastructure failure.
type RuleError struct {
	Kind    Kind
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func newRuleError(kind Kind, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsRuleError reports whether err is a business rule failure and returns it.
func IsRuleError(err error) (*RuleError, bool) {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr, true
	}

	return nil, false
}

// IsKind checks if err is a business rule failure of the given kind.
func IsKind(err error, kind Kind) bool {
	ruleErr, ok := IsRuleError(err)

	return ok && ruleErr.Kind == kind
}
