package auth

import (
	"errors"
	"fmt"

	"github.com/reporthere/reporthere/internal/models"
)

// ErrPermissionDenied is the sentinel matched by errors.Is for all role
// guard denials.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionError is returned when a caller's company role does not meet
// the minimum required for an action. It carries the required role so
// handlers can tell the user what was missing.
type PermissionError struct {
	Required models.Role
	Actual   models.Role
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: requires role %q or above, have %q", e.Required, e.Actual)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// RequireCompanyRole checks that a membership role meets the given
// minimum in the viewer < agent < admin < owner order. An empty role is
// treated as viewer. Returns a *PermissionError on denial rather than
// panicking, so callers handle denial like any other error.
func RequireCompanyRole(role, min models.Role) error {
	if role == "" {
		role = models.RoleViewer
	}
	if !role.AtLeast(min) {
		return &PermissionError{Required: min, Actual: role}
	}
	return nil
}
