// Package repository provides database access for domain entities.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"gitlab.com/ersapp/ers-service/internal/database"
	"gitlab.com/ersapp/ers-service/internal/errs"
)

// Category names a lookup table the resolver can translate natural keys for.
type Category string

// Resolvable identity categories.
const (
	CategoryUser   Category = "user"
	CategoryType   Category = "type"
	CategoryStatus Category = "status"
)

var categoryQueries = map[Category]string{
	CategoryUser:   `SELECT id FROM users WHERE username = $1`,
	CategoryType:   `SELECT id FROM types WHERE LOWER(name) = LOWER($1)`,
	CategoryStatus: `SELECT id FROM statuses WHERE LOWER(name) = LOWER($1)`,
}

// IdentityResolver maps natural keys (username, type name, status name) to
// their surrogate keys with one read query per call. It holds no cache:
// callers that resolve several keys for one logical write run the resolver
// on a transaction so the resolutions and the write stay atomic.
type IdentityResolver struct {
	db database.PGXDB
}

// NewIdentityResolver creates a new IdentityResolver.
func NewIdentityResolver(db database.PGXDB) *IdentityResolver {
	return &IdentityResolver{db: db}
}

// Resolve returns the surrogate key for the named row in the given category.
// An unknown natural key is a NotFound failure, never a default key: falling
// back silently would corrupt the reimbursement's identity references.
func (r *IdentityResolver) Resolve(ctx context.Context, category Category, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errs.InvalidInputf("%s name is required", category)
	}
	query, ok := categoryQueries[category]
	if !ok {
		return 0, errs.InvalidInputf("unknown identity category %q", category)
	}

	var id int
	err := r.db.QueryRow(ctx, query, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.NotFoundf("no %s named %q", category, name)
	}
	if err != nil {
		return 0, errs.Storage("failed to resolve "+string(category)+" key", err)
	}
	return id, nil
}

// ResolveUser returns the user id for a username.
func (r *IdentityResolver) ResolveUser(ctx context.Context, username string) (int, error) {
	return r.Resolve(ctx, CategoryUser, username)
}

// ResolveType returns the type id for a type name.
func (r *IdentityResolver) ResolveType(ctx context.Context, name string) (int, error) {
	return r.Resolve(ctx, CategoryType, name)
}

// ResolveStatus returns the status id for a status name.
func (r *IdentityResolver) ResolveStatus(ctx context.Context, name string) (int, error) {
	return r.Resolve(ctx, CategoryStatus, name)
}
