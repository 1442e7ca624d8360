package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a company membership role. Roles form a total order used for
// permission comparisons: viewer < agent < admin < owner.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleOrder = map[Role]int{
	RoleViewer: 0,
	RoleAgent:  1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Order returns the role's position in the total order. Unknown or empty
// roles rank as viewer.
func (r Role) Order() int {
	if n, ok := roleOrder[r]; ok {
		return n
	}
	return 0
}

// AtLeast reports whether the role meets the given minimum.
func (r Role) AtLeast(min Role) bool {
	return r.Order() >= min.Order()
}

// CompanyMember links a user to a company with a role. The first member
// of a company is created by claim approval with the owner role.
type CompanyMember struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	UserEmail string
	Role      Role

	InvitedAt  time.Time
	AcceptedAt time.Time
}
