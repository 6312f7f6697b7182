package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser        Role = "USER"
	RoleVendor      Role = "VENDOR"
	RoleAdmin       Role = "ADMIN"
	RoleArbitrator  Role = "ARBITRATOR"
	RoleReviewPanel Role = "REVIEW_PANEL"
	RoleInternal    Role = "INTERNAL"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdmin, RoleArbitrator, RoleReviewPanel, RoleInternal:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to platform personnel
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleArbitrator || r == RoleReviewPanel
}

// Actor is whoever invokes an operation. The reconciler acts as the
// INTERNAL actor with a nil ID.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func SystemActor() Actor {
	return Actor{Role: RoleInternal}
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleInternal
}

// IDPtr returns nil for the system actor
func (a Actor) IDPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
