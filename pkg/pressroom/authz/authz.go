// Package authz provides a static role based authorizer. Roles map to
// capability sets; an actor is allowed when any of its roles grants the
// capability.
package authz

import (
	"sync"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// Well known roles.
const (
	RoleChiefEditor = "chief_editor"
	RoleEditor      = "editor"
	RoleReviewer    = "reviewer"
)

// RoleAuthorizer implements pressroom.Authorizer with a role to
// capability table.
type RoleAuthorizer struct {
	mu    sync.RWMutex
	roles map[string]map[pressroom.Capability]bool
}

// NewDefault returns an authorizer preloaded with the standard
// editorial roles.
func NewDefault() *RoleAuthorizer {
	a := New()
	a.Grant(RoleChiefEditor,
		pressroom.CapEditArticle,
		pressroom.CapPublishArticle,
		pressroom.CapReviewArticle,
		pressroom.CapApproveArticle,
		pressroom.CapRejectArticle,
		pressroom.CapViewHistory,
		pressroom.CapRestoreVersion,
	)
	a.Grant(RoleEditor,
		pressroom.CapEditArticle,
		pressroom.CapViewHistory,
	)
	a.Grant(RoleReviewer,
		pressroom.CapReviewArticle,
		pressroom.CapApproveArticle,
		pressroom.CapRejectArticle,
		pressroom.CapViewHistory,
	)
	return a
}

// New returns an authorizer with no grants. Every check fails until
// roles are granted capabilities.
func New() *RoleAuthorizer {
	return &RoleAuthorizer{
		roles: make(map[string]map[pressroom.Capability]bool),
	}
}

// Grant adds capabilities to a role, creating the role if needed.
func (a *RoleAuthorizer) Grant(role string, capabilities ...pressroom.Capability) {
	a.mu.Lock()
	defer a.mu.Unlock()

	caps, ok := a.roles[role]
	if !ok {
		caps = make(map[pressroom.Capability]bool)
		a.roles[role] = caps
	}
	for _, c := range capabilities {
		caps[c] = true
	}
}

func (a *RoleAuthorizer) Can(actor pressroom.Actor, capability pressroom.Capability) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, role := range actor.Roles {
		if a.roles[role][capability] {
			return true
		}
	}
	return false
}
