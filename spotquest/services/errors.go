package services

import (
	"context"
	"errors"
	"fmt"
)

// ValidationCode identifies an expected, recoverable failure surfaced to
// the caller. Anything else bubbling out of a service is a storage error
// and aborts the whole request transaction.
type ValidationCode string

const (
	CodeInvalidAmount     ValidationCode = "invalid_amount"
	CodeInsufficientFunds ValidationCode = "insufficient_funds"
	CodeStockExhausted    ValidationCode = "stock_exhausted"
	CodeAlreadyCheckedIn  ValidationCode = "already_checked_in"
	CodeAlreadyReviewed   ValidationCode = "already_reviewed"
	CodeInactiveReward    ValidationCode = "inactive_reward"
	CodeUnknownAction     ValidationCode = "unknown_action"
	CodeInvalidCause      ValidationCode = "invalid_cause"
)

type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is an expected caller-facing failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationCodeOf extracts the code, or "" for non-validation errors.
func ValidationCodeOf(err error) ValidationCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

type evaluatingKey struct{}

// withEvaluating marks ctx as inside a rule evaluation. Ledger grants made
// during an evaluation log their coin_earned/xp_earned events but do not
// re-enter the engine, which caps the reward->log->evaluate chain at one
// level even if the catalog ever carries a reward-bearing meta goal.
func withEvaluating(ctx context.Context) context.Context {
	return context.WithValue(ctx, evaluatingKey{}, true)
}

func isEvaluating(ctx context.Context) bool {
	v, _ := ctx.Value(evaluatingKey{}).(bool)
	return v
}
