package service

import (
	"context"
	"time"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/logger"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// Store is the persistence contract the service and validator depend on.
// Implemented by repository.ReimbursementRepository.
type Store interface {
	GetAll(ctx context.Context) ([]models.Reimbursement, error)
	GetByID(ctx context.Context, id int) (*models.Reimbursement, error)
	GetAllForAuthor(ctx context.Context, username string) ([]models.Reimbursement, error)
	FilterByType(ctx context.Context, name string) ([]models.Reimbursement, error)
	FilterByStatus(ctx context.Context, name string) ([]models.Reimbursement, error)
	Create(ctx context.Context, rb *models.Reimbursement) error
	Update(ctx context.Context, rb *models.Reimbursement) (bool, error)
	SetStatus(ctx context.Context, id int, status, resolverIdentity string, resolvedAt time.Time) (bool, error)
	DeleteByID(ctx context.Context, id int) error
}

// UserDirectory looks up users by natural key. Implemented by
// repository.UserRepository.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// ReimbursementService orchestrates the lifecycle validator and the store.
// Read operations treat an empty result as NotFound; callers depend on that
// error path, so an empty collection is not a success here.
type ReimbursementService struct {
	store     Store
	validator *LifecycleValidator
}

// NewReimbursementService creates a new ReimbursementService.
func NewReimbursementService(store Store, users UserDirectory) *ReimbursementService {
	return &ReimbursementService{
		store:     store,
		validator: NewLifecycleValidator(store, users),
	}
}

// List returns all reimbursements, newest first.
func (s *ReimbursementService) List(ctx context.Context) ([]models.Reimbursement, error) {
	rbs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(rbs) == 0 {
		return nil, errs.NotFoundf("there are no reimbursements")
	}
	return rbs, nil
}

// Get returns a single reimbursement by id.
func (s *ReimbursementService) Get(ctx context.Context, id int) (*models.Reimbursement, error) {
	if id <= 0 {
		return nil, errs.InvalidInputf("a valid positive id is required")
	}
	rb, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rb == nil {
		return nil, errs.NotFoundf("no reimbursement with id %d", id)
	}
	return rb, nil
}

// ListForUser returns all reimbursements submitted by the given user.
func (s *ReimbursementService) ListForUser(ctx context.Context, username string) ([]models.Reimbursement, error) {
	if username == "" {
		return nil, errs.InvalidInputf("username is required")
	}
	rbs, err := s.store.GetAllForAuthor(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(rbs) == 0 {
		return nil, errs.NotFoundf("no reimbursements for user %q", username)
	}
	return rbs, nil
}

// FilterByType returns all reimbursements with the given type label.
func (s *ReimbursementService) FilterByType(ctx context.Context, name string) ([]models.Reimbursement, error) {
	if name == "" {
		return nil, errs.InvalidInputf("type is required")
	}
	rbs, err := s.store.FilterByType(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(rbs) == 0 {
		return nil, errs.NotFoundf("no reimbursements of type %q", name)
	}
	return rbs, nil
}

// FilterByStatus returns all reimbursements with the given status label.
func (s *ReimbursementService) FilterByStatus(ctx context.Context, name string) ([]models.Reimbursement, error) {
	if name == "" {
		return nil, errs.InvalidInputf("status is required")
	}
	rbs, err := s.store.FilterByStatus(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(rbs) == 0 {
		return nil, errs.NotFoundf("no reimbursements with status %q", name)
	}
	return rbs, nil
}

// Submit validates and persists a new reimbursement, returning the record
// with its assigned id, submission time and forced pending defaults.
func (s *ReimbursementService) Submit(ctx context.Context, rb *models.Reimbursement) (*models.Reimbursement, error) {
	if err := s.validator.ValidateCreate(rb); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, rb); err != nil {
		return nil, err
	}

	logger.Log.Info().
		Int("id", rb.ID).
		Str("author", rb.Author).
		Str("type", rb.Type).
		Msg("reimbursement submitted")
	return rb, nil
}

// Update modifies the mutable fields of a pending reimbursement.
func (s *ReimbursementService) Update(ctx context.Context, rb *models.Reimbursement) (bool, error) {
	if err := s.validator.ValidateUpdate(ctx, rb); err != nil {
		return false, err
	}
	return s.store.Update(ctx, rb)
}

// Resolve transitions a pending reimbursement to approved or denied. The
// store applies the transition only while the row is still pending, so of
// two concurrent resolves exactly one succeeds; the loser fails with
// InvalidState.
func (s *ReimbursementService) Resolve(ctx context.Context, id int, decision, resolverIdentity string) (bool, error) {
	res, err := s.validator.ValidateResolve(ctx, id, decision, resolverIdentity)
	if err != nil {
		return false, err
	}

	ok, err := s.store.SetStatus(ctx, id, res.Status, res.Resolver, res.ResolvedAt)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errs.InvalidStatef("reimbursement %d was resolved concurrently", id)
	}

	logger.Log.Info().
		Int("id", id).
		Str("decision", decision).
		Str("resolver", resolverIdentity).
		Msg("reimbursement resolved")
	return true, nil
}

// Delete hard-deletes a reimbursement. Deleting a missing id still reports
// success; delete is idempotent.
func (s *ReimbursementService) Delete(ctx context.Context, id int) (bool, error) {
	if id <= 0 {
		return false, errs.InvalidInputf("a valid positive id is required")
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
