package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
	"gitlab.com/ersapp/ers-service/internal/repository"
)

// UserRepo is the persistence contract for users.
// Implemented by repository.UserRepository.
type UserRepo interface {
	GetAll(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, u *models.User, passwordHash string) error
	Update(ctx context.Context, u *models.User) (bool, error)
	DeleteByID(ctx context.Context, id int) error
	GetCredential(ctx context.Context, username string) (*repository.Credential, error)
}

// UserService manages user accounts and authentication. Returned users never
// carry credentials; models.User has no password field.
type UserService struct {
	repo UserRepo
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepo) *UserService {
	return &UserService{repo: repo}
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errs.NotFoundf("there are no users")
	}
	return users, nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, id int) (*models.User, error) {
	if id <= 0 {
		return nil, errs.InvalidInputf("a valid positive id is required")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFoundf("no user with id %d", id)
	}
	return u, nil
}

// GetByUsername returns a single user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errs.InvalidInputf("username is required")
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFoundf("no user named %q", username)
	}
	return u, nil
}

// Register validates and persists a new user, hashing the supplied password.
// An empty role defaults to employee.
func (s *UserService) Register(ctx context.Context, u *models.User, password string) (*models.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return nil, errs.InvalidInputf("username is required")
	}
	if strings.TrimSpace(u.Email) == "" || !strings.Contains(u.Email, "@") {
		return nil, errs.InvalidInputf("a valid email is required")
	}
	if password == "" {
		return nil, errs.InvalidInputf("password is required")
	}
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Storage("failed to hash password", err)
	}

	if err := s.repo.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}
	return u, nil
}

// Update modifies a user's profile fields and role.
func (s *UserService) Update(ctx context.Context, u *models.User) (bool, error) {
	if u.ID <= 0 {
		return false, errs.InvalidInputf("a valid positive id is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return false, errs.InvalidInputf("username is required")
	}
	return s.repo.Update(ctx, u)
}

// Delete removes a user by id.
func (s *UserService) Delete(ctx context.Context, id int) (bool, error) {
	if id <= 0 {
		return false, errs.InvalidInputf("a valid positive id is required")
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate verifies a username/password pair and returns the matching
// user. Unknown usernames and wrong passwords both report Forbidden so the
// response does not reveal which part failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errs.InvalidInputf("username and password are required")
	}

	cred, err := s.repo.GetCredential(ctx, username)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, errs.Forbiddenf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, errs.Forbiddenf("invalid credentials")
	}

	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.Forbiddenf("invalid credentials")
	}
	return u, nil
}
