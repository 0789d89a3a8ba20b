package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gitlab.com/ersapp/ers-service/internal/database"
	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// baseQuery joins the reimbursement row with author name, resolver name
// (nullable), status label and type label.
const baseQuery = `
	SELECT r.id, r.amount, r.submitted, r.resolved, r.description,
	       a.username AS author, res.username AS resolver,
	       s.name AS status, t.name AS type
	FROM reimbursements r
	JOIN users a ON r.author_id = a.id
	LEFT JOIN users res ON r.resolver_id = res.id
	JOIN statuses s ON r.status_id = s.id
	JOIN types t ON r.type_id = t.id`

// Newest-first reading order.
const baseOrder = ` ORDER BY r.submitted DESC, r.id DESC`

// ReimbursementRepository owns the reimbursement table's CRUD and its join
// reads. It is the only component issuing queries against that table. Natural
// keys on write paths are resolved inside one transaction so a failed
// resolution can never leave a half-written row.
type ReimbursementRepository struct {
	db database.PGXDB
}

// NewReimbursementRepository creates a new ReimbursementRepository.
func NewReimbursementRepository(db database.PGXDB) *ReimbursementRepository {
	return &ReimbursementRepository{db: db}
}

// wrapStorage classifies a raw persistence error, leaving already
// classified errors untouched so resolution failures keep their kind.
func wrapStorage(msg string, err error) error {
	if errs.KindOf(err) != errs.KindUnknown {
		return err
	}
	return errs.Storage(msg, err)
}

// GetAll retrieves all reimbursements, newest first.
func (r *ReimbursementRepository) GetAll(ctx context.Context) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, baseQuery+baseOrder)
	if err != nil {
		return nil, errs.Storage("failed to query reimbursements", err)
	}
	defer rows.Close()

	return scanReimbursements(rows)
}

// GetByID retrieves a single reimbursement. A missing id is a normal outcome
// and returns (nil, nil); the service layer decides what absence means.
func (r *ReimbursementRepository) GetByID(ctx context.Context, id int) (*models.Reimbursement, error) {
	row := r.db.QueryRow(ctx, baseQuery+` WHERE r.id = $1`, id)

	rb, err := scanReimbursement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage("failed to get reimbursement", err)
	}
	return rb, nil
}

// GetAllForAuthor retrieves all reimbursements submitted by the given user.
func (r *ReimbursementRepository) GetAllForAuthor(ctx context.Context, username string) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, baseQuery+` WHERE a.username = $1`+baseOrder, username)
	if err != nil {
		return nil, errs.Storage("failed to query reimbursements by author", err)
	}
	defer rows.Close()

	return scanReimbursements(rows)
}

// FilterByType retrieves all reimbursements of the given type.
func (r *ReimbursementRepository) FilterByType(ctx context.Context, name string) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, baseQuery+` WHERE LOWER(t.name) = LOWER($1)`+baseOrder, name)
	if err != nil {
		return nil, errs.Storage("failed to query reimbursements by type", err)
	}
	defer rows.Close()

	return scanReimbursements(rows)
}

// FilterByStatus retrieves all reimbursements in the given status.
func (r *ReimbursementRepository) FilterByStatus(ctx context.Context, name string) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, baseQuery+` WHERE LOWER(s.name) = LOWER($1)`+baseOrder, name)
	if err != nil {
		return nil, errs.Storage("failed to query reimbursements by status", err)
	}
	defer rows.Close()

	return scanReimbursements(rows)
}

// Create inserts a new reimbursement. Author and type natural keys are
// resolved in the same transaction as the insert; status is forced to
// pending with no resolver and no resolution time regardless of input.
// On success the record carries its assigned id and submission time.
func (r *ReimbursementRepository) Create(ctx context.Context, rb *models.Reimbursement) error {
	err := database.WithinTx(ctx, r.db, func(tx database.PGXDB) error {
		res := NewIdentityResolver(tx)

		authorID, err := res.ResolveUser(ctx, rb.Author)
		if err != nil {
			return err
		}
		typeID, err := res.ResolveType(ctx, rb.Type)
		if err != nil {
			return err
		}
		pendingID, err := res.ResolveStatus(ctx, models.StatusPending)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO reimbursements (amount, submitted, resolved, description, author_id, resolver_id, status_id, type_id)
			VALUES ($1, NOW(), NULL, $2, $3, NULL, $4, $5)
			RETURNING id, submitted
		`, rb.Amount, rb.Description, authorID, pendingID, typeID).Scan(&rb.ID, &rb.Submitted)
	})
	if err != nil {
		return wrapStorage("failed to create reimbursement", err)
	}

	rb.Status = models.StatusPending
	rb.Resolved = nil
	rb.Resolver = nil
	return nil
}

// Update modifies the mutable fields (amount, description, author, type) of
// an existing reimbursement. Returns whether a row was affected; a missing
// id reports false, not an error. Status, resolver and resolution time are
// untouched by this path.
func (r *ReimbursementRepository) Update(ctx context.Context, rb *models.Reimbursement) (bool, error) {
	var affected bool
	err := database.WithinTx(ctx, r.db, func(tx database.PGXDB) error {
		res := NewIdentityResolver(tx)

		authorID, err := res.ResolveUser(ctx, rb.Author)
		if err != nil {
			return err
		}
		typeID, err := res.ResolveType(ctx, rb.Type)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE reimbursements SET
				amount = $2,
				description = $3,
				author_id = $4,
				type_id = $5
			WHERE id = $1
		`, rb.ID, rb.Amount, rb.Description, authorID, typeID)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, wrapStorage("failed to update reimbursement", err)
	}
	return affected, nil
}

// SetStatus records a lifecycle transition: status, resolver and resolution
// time change together in one statement conditioned on the row still being
// pending. Under concurrent resolution exactly one caller observes an
// affected row; the other sees false and must treat the record as already
// resolved.
func (r *ReimbursementRepository) SetStatus(ctx context.Context, id int, status, resolverIdentity string, resolvedAt time.Time) (bool, error) {
	var affected bool
	err := database.WithinTx(ctx, r.db, func(tx database.PGXDB) error {
		res := NewIdentityResolver(tx)

		statusID, err := res.ResolveStatus(ctx, status)
		if err != nil {
			return err
		}
		resolverID, err := res.ResolveUser(ctx, resolverIdentity)
		if err != nil {
			return err
		}
		pendingID, err := res.ResolveStatus(ctx, models.StatusPending)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE reimbursements SET
				status_id = $2,
				resolver_id = $3,
				resolved = $4
			WHERE id = $1 AND status_id = $5
		`, id, statusID, resolverID, resolvedAt, pendingID)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, wrapStorage(fmt.Sprintf("failed to set status of reimbursement %d", id), err)
	}
	return affected, nil
}

// DeleteByID removes a reimbursement. Deleting a missing id is not an error;
// delete is idempotent.
func (r *ReimbursementRepository) DeleteByID(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reimbursements WHERE id = $1`, id)
	if err != nil {
		return errs.Storage("failed to delete reimbursement", err)
	}
	return nil
}

// scanReimbursement scans a single joined row.
func scanReimbursement(row pgx.Row) (*models.Reimbursement, error) {
	var rb models.Reimbursement
	if err := row.Scan(
		&rb.ID, &rb.Amount, &rb.Submitted, &rb.Resolved, &rb.Description,
		&rb.Author, &rb.Resolver, &rb.Status, &rb.Type,
	); err != nil {
		return nil, err
	}
	return &rb, nil
}

// scanReimbursements is a helper to scan joined reimbursement rows.
func scanReimbursements(rows pgx.Rows) ([]models.Reimbursement, error) {
	var result []models.Reimbursement
	for rows.Next() {
		rb, err := scanReimbursement(rows)
		if err != nil {
			return nil, errs.Storage("failed to scan reimbursement", err)
		}
		result = append(result, *rb)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("error iterating reimbursements", err)
	}
	return result, nil
}
