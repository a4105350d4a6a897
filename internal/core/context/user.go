// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains the authenticated principal supplied by the identity
// collaborator: who is counting, and which branch scope they operate in.
type UserContext struct {
	UserID string
	Email  string
	Name   string

	// BranchID is the branch the user is assigned to (nil for admins
	// without a fixed branch).
	BranchID *int64

	// SelectedBranchID is the branch an admin has picked for the current
	// session. Absent until the admin selects one.
	SelectedBranchID *int64

	IsAdmin bool
}

// EffectiveBranch returns the branch scope for this principal: the assigned
// branch, or the admin-selected one. The second return is false when neither
// is present.
func (u *UserContext) EffectiveBranch() (int64, bool) {
	if u == nil {
		return 0, false
	}
	if u.BranchID != nil {
		return *u.BranchID, true
	}
	if u.IsAdmin && u.SelectedBranchID != nil {
		return *u.SelectedBranchID, true
	}
	return 0, false
}

// ActorName returns the display identity used on movement rows.
func (u *UserContext) ActorName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
