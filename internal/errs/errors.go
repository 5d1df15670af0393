package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error so callers can branch without matching messages.
type Kind int

const (
	KindNotFound Kind = iota
	KindValidation
	KindBusiness
	KindIntegration
)

// FieldViolation is a single validation failure on one input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Violations []FieldViolation
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.Field+": "+v.Message)
		}
		return e.Message + " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity, e.g. NotFound("payment", id).
func NotFound(entity string, id interface{}) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    entity + ".notFound",
		Message: fmt.Sprintf("%s %v not found", entity, id),
	}
}

// Business reports a domain-rule violation with a machine-readable reason code.
func Business(code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindBusiness,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation reports one or more field violations as a single error.
func Validation(violations ...FieldViolation) *Error {
	return &Error{
		Kind:       KindValidation,
		Code:       "validation.failed",
		Message:    "validation failed",
		Violations: violations,
	}
}

// Integration reports a failure in an external collaborator.
func Integration(code string, retryable bool, err error) *Error {
	return &Error{
		Kind:      KindIntegration,
		Code:      code,
		Message:   "integration failure",
		Retryable: retryable,
		Err:       err,
	}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool    { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsValidation(err error) bool  { k, ok := kindOf(err); return ok && k == KindValidation }
func IsBusiness(err error) bool    { k, ok := kindOf(err); return ok && k == KindBusiness }
func IsIntegration(err error) bool { k, ok := kindOf(err); return ok && k == KindIntegration }

// CodeOf returns the machine-readable code, or "" for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
