package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gitlab.com/ersapp/ers-service/internal/database"
	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

const userBaseQuery = `
	SELECT u.id, u.username, u.first_name, u.last_name, u.email, ro.name AS role
	FROM users u
	JOIN roles ro ON u.role_id = ro.id`

// Credential is the password material for one user. It exists only for
// authentication; models.User carries no credential fields so password
// hashes cannot leak through service responses by construction.
type Credential struct {
	UserID       int
	PasswordHash string
}

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

// GetAll retrieves all users with their role labels.
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, userBaseQuery+` ORDER BY u.username`)
	if err != nil {
		return nil, errs.Storage("failed to query users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Role); err != nil {
			return nil, errs.Storage("failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("error iterating users", err)
	}
	return users, nil
}

// GetByID retrieves a user by id. A missing id returns (nil, nil).
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getOne(ctx, userBaseQuery+` WHERE u.id = $1`, id)
}

// GetByUsername retrieves a user by username. A missing user returns (nil, nil).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, userBaseQuery+` WHERE u.username = $1`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage("failed to get user", err)
	}
	return &u, nil
}

// Create inserts a new user with the already-hashed password. The role
// natural key is resolved in the same transaction as the insert.
func (r *UserRepository) Create(ctx context.Context, u *models.User, passwordHash string) error {
	err := database.WithinTx(ctx, r.db, func(tx database.PGXDB) error {
		roleID, err := resolveRole(ctx, tx, u.Role)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO users (username, password, first_name, last_name, email, role_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, u.Username, passwordHash, u.FirstName, u.LastName, u.Email, roleID).Scan(&u.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return errs.InvalidInputf("username or email already taken")
		}
		return wrapStorage("failed to create user", err)
	}
	return nil
}

// Update modifies a user's profile fields and role. The stored credential is
// untouched. Returns whether a row was affected.
func (r *UserRepository) Update(ctx context.Context, u *models.User) (bool, error) {
	var affected bool
	err := database.WithinTx(ctx, r.db, func(tx database.PGXDB) error {
		roleID, err := resolveRole(ctx, tx, u.Role)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE users SET
				username = $2,
				first_name = $3,
				last_name = $4,
				email = $5,
				role_id = $6
			WHERE id = $1
		`, u.ID, u.Username, u.FirstName, u.LastName, u.Email, roleID)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, errs.InvalidInputf("username or email already taken")
		}
		return false, wrapStorage("failed to update user", err)
	}
	return affected, nil
}

// DeleteByID removes a user. Missing ids are not an error.
func (r *UserRepository) DeleteByID(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errs.Storage("failed to delete user", err)
	}
	return nil
}

// GetCredential loads the stored password hash for a username.
// A missing user returns (nil, nil).
func (r *UserRepository) GetCredential(ctx context.Context, username string) (*Credential, error) {
	var cred Credential
	err := r.db.QueryRow(ctx, `
		SELECT id, password FROM users WHERE username = $1
	`, username).Scan(&cred.UserID, &cred.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage("failed to get credential", err)
	}
	return &cred, nil
}

func resolveRole(ctx context.Context, db database.PGXDB, role string) (int, error) {
	if role == "" {
		role = models.RoleEmployee
	}
	var id int
	err := db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, role).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.NotFoundf("no role named %q", role)
	}
	if err != nil {
		return 0, errs.Storage("failed to resolve role key", err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
