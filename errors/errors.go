package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation         = fmt.Errorf("validation failed")
	ErrSameParticipants   = fmt.Errorf("sender and receiver must be different users")
	ErrUnknownParticipant = fmt.Errorf("participant does not exist")
	ErrNotParticipant     = fmt.Errorf("caller is not a participant of this conversation")
	ErrStore              = fmt.Errorf("message store failure")
	ErrMessageNotFound    = fmt.Errorf("message not found")

	ErrUnauthenticated    = fmt.Errorf("missing or invalid credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrEmptyWords = fmt.Errorf("no words have been found")
)

// ValidationError carries field-level detail: field name (as seen on the wire) -> failed rule.
// Cause optionally names the business rule that failed, so callers can match it with errors.Is.
type ValidationError struct {
	Fields map[string]string
	Cause  error
}

func NewValidationError(field, rule string, cause error) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}, Cause: cause}
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(v.Fields))
	for field, rule := range v.Fields {
		parts = append(parts, field+": "+rule)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s (%s)", ErrValidation, strings.Join(parts, ", "))
}

func (v *ValidationError) Unwrap() []error {
	if v.Cause == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, v.Cause}
}
