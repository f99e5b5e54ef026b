package contracts

import (
	"errors"
	"fmt"
)

// Error kinds shared by the scoring engine and the weight optimizer.
// Callers match them with errors.Is.
var (
	// ErrConfiguration: missing indicator column, empty sector mapping
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidInput: values outside the algorithm's domain, bad top_k / iterations, short price table
	ErrInvalidInput = errors.New("invalid input")
	// ErrNumericDegeneracy: a normalization would divide by zero although preconditions hold
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// ValidationError 검증 실패 (fail-fast, 부분 결과 없음)
type ValidationError struct {
	Kind    error
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Message)
}

// Unwrap exposes the error kind to errors.Is
func (e ValidationError) Unwrap() error {
	return e.Kind
}

// ConfigurationError builds an ErrConfiguration ValidationError
func ConfigurationError(field, format string, args ...interface{}) error {
	return ValidationError{Kind: ErrConfiguration, Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputError builds an ErrInvalidInput ValidationError
func InvalidInputError(field, format string, args ...interface{}) error {
	return ValidationError{Kind: ErrInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

// DegeneracyError builds an ErrNumericDegeneracy ValidationError
func DegeneracyError(field, format string, args ...interface{}) error {
	return ValidationError{Kind: ErrNumericDegeneracy, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns a short label for the error kind ("" for nil, "internal" when untyped)
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNumericDegeneracy):
		return "numeric_degeneracy"
	}
	return "internal"
}
