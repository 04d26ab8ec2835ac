package application

import (
	"errors"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

var (
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the caller is known but lacks membership or role.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist or is not visible.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique resource is created twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrTimerRunning is returned when a timer is started while another task's timer runs.
	ErrTimerRunning = errors.New("application: timer already running")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// RuleViolation reports a well formed request that breaks a domain rule.
type RuleViolation struct {
	Message string
}

func (r *RuleViolation) Error() string {
	if r == nil {
		return ""
	}
	return r.Message
}

func ruleViolation(message string) *RuleViolation {
	return &RuleViolation{Message: message}
}

// fromAccess converts checker failures into service errors. Denials become
// denied, which callers pick per operation to hide or reveal existence.
func fromAccess(err, denied error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, access.ErrNotFound):
		return ErrNotFound
	case access.Denied(err):
		return denied
	}
	return err
}

// fromRepo converts persistence sentinels into service errors.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
