// Package service orchestrates validation and persistence for the
// reimbursement lifecycle. It is the only entry point the HTTP layer calls.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// Resolution is the set of fields a successful resolve persists together.
type Resolution struct {
	Status     string
	Resolver   string
	ResolvedAt time.Time
}

// LifecycleValidator gates every mutation against the state machine and the
// field rules before any resolution or persistence is attempted.
//
// States: pending, approved, denied. Initial state is pending; approved and
// denied are terminal. The only transitions are pending→approved and
// pending→denied, both triggered solely by ValidateResolve.
type LifecycleValidator struct {
	store Store
	users UserDirectory
}

// NewLifecycleValidator creates a new LifecycleValidator.
func NewLifecycleValidator(store Store, users UserDirectory) *LifecycleValidator {
	return &LifecycleValidator{store: store, users: users}
}

func validateFields(rb *models.Reimbursement) error {
	if rb.Amount.LessThanOrEqual(decimal.Zero) {
		return errs.InvalidInputf("amount must be positive")
	}
	if strings.TrimSpace(rb.Description) == "" {
		return errs.InvalidInputf("description is required")
	}
	if strings.TrimSpace(rb.Author) == "" {
		return errs.InvalidInputf("author is required")
	}
	if strings.TrimSpace(rb.Type) == "" {
		return errs.InvalidInputf("type is required")
	}
	return nil
}

// ValidateCreate checks the candidate's fields and forces the creation
// defaults: status pending, no resolver, no resolution time. These fields
// are not client-settable, whatever the caller supplied is discarded.
func (v *LifecycleValidator) ValidateCreate(rb *models.Reimbursement) error {
	if err := validateFields(rb); err != nil {
		return err
	}

	rb.ID = 0
	rb.Status = models.StatusPending
	rb.Resolved = nil
	rb.Resolver = nil
	return nil
}

// ValidateUpdate checks the candidate's fields and rejects updates to
// records that have left the pending state: approved and denied
// reimbursements are frozen.
func (v *LifecycleValidator) ValidateUpdate(ctx context.Context, rb *models.Reimbursement) error {
	if rb.ID <= 0 {
		return errs.InvalidInputf("a valid positive id is required")
	}
	if err := validateFields(rb); err != nil {
		return err
	}

	current, err := v.store.GetByID(ctx, rb.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return errs.NotFoundf("no reimbursement with id %d", rb.ID)
	}
	if current.Status != models.StatusPending {
		return errs.InvalidStatef("reimbursement %d is %s and can no longer be updated", rb.ID, current.Status)
	}
	return nil
}

// ValidateResolve checks a pending→terminal transition and yields the fields
// to persist. The resolver's role is re-checked here even though the HTTP
// guard already gates resolver routes: the guard is not trusted on role
// correctness.
func (v *LifecycleValidator) ValidateResolve(ctx context.Context, id int, newStatus, resolverIdentity string) (Resolution, error) {
	if id <= 0 {
		return Resolution{}, errs.InvalidInputf("a valid positive id is required")
	}
	if !models.IsTerminalStatus(newStatus) {
		return Resolution{}, errs.InvalidInputf("decision must be %q or %q", models.StatusApproved, models.StatusDenied)
	}
	if strings.TrimSpace(resolverIdentity) == "" {
		return Resolution{}, errs.InvalidInputf("resolver identity is required")
	}

	current, err := v.store.GetByID(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if current == nil {
		return Resolution{}, errs.NotFoundf("no reimbursement with id %d", id)
	}
	if current.Status != models.StatusPending {
		return Resolution{}, errs.InvalidStatef("reimbursement %d is already %s", id, current.Status)
	}

	resolver, err := v.users.GetByUsername(ctx, resolverIdentity)
	if err != nil {
		return Resolution{}, err
	}
	if resolver == nil {
		return Resolution{}, errs.NotFoundf("no user named %q", resolverIdentity)
	}
	if !models.IsResolverRole(resolver.Role) {
		return Resolution{}, errs.Forbiddenf("role %q may not resolve reimbursements", resolver.Role)
	}

	return Resolution{
		Status:     newStatus,
		Resolver:   resolverIdentity,
		ResolvedAt: time.Now().UTC(),
	}, nil
}
