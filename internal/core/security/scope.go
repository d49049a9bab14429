// Package security provides the access scope handed to record retrieval.
package security

import (
	"context"

	"reportengine/internal/core/apperror"
	appctx "reportengine/internal/core/context"
)

// AccessScope defines the boundaries of data visibility for the current call.
// The report engine never filters by organization itself: it passes ScopeID
// to the retrieval adapter, which enforces it.
type AccessScope struct {
	// UserID is the caller
	UserID string

	// OrganizationID limits retrieval to one organization's records
	OrganizationID string

	// IsAdmin is carried for logging only; it does not widen the scope
	IsAdmin bool
}

// NewAccessScope creates AccessScope from context.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{}
	}

	return &AccessScope{
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
		IsAdmin:        user.IsAdmin,
	}
}

// ScopeID returns the identifier the retrieval adapter scopes by.
func (s *AccessScope) ScopeID() string {
	return s.OrganizationID
}

// Require returns an error when no organization scope is present.
func (s *AccessScope) Require() error {
	if s.OrganizationID == "" {
		return apperror.NewForbidden("organization scope required")
	}
	return nil
}
