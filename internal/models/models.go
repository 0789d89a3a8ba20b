// Package models defines the domain entities for the reimbursement service.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reimbursement statuses. A reimbursement starts pending and moves exactly
// once to approved or denied.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// User roles. Managers and admins may act as resolvers.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// IsTerminalStatus reports whether status is a final lifecycle state.
func IsTerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusDenied
}

// IsResolverRole reports whether a user with the given role may approve or
// deny reimbursements.
func IsResolverRole(role string) bool {
	return role == RoleManager || role == RoleAdmin
}

// Reimbursement represents a single reimbursement request.
// Author, Resolver, Status and Type carry the natural keys (username and
// lookup names); the surrogate foreign keys never leave the repository layer.
type Reimbursement struct {
	ID          int
	Amount      decimal.Decimal
	Submitted   time.Time
	Resolved    *time.Time
	Description string
	Author      string
	Resolver    *string
	Status      string
	Type        string
}

// User represents a registered user. Credentials are deliberately absent:
// password material lives only in repository.Credential and never crosses
// the service boundary.
type User struct {
	ID        int
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      string
}
