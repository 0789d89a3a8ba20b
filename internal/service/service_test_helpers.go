package service

import (
	"context"
	"time"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// fakeStore is an in-memory Store used by the unit tests. It mirrors the
// repository's contracts: GetByID reports absence as (nil, nil), SetStatus
// applies only while the row is still pending, and forcedErr short-circuits
// every call to simulate storage failures.
type fakeStore struct {
	byID      map[int]*models.Reimbursement
	nextID    int
	forcedErr error
	// loseRace makes the next SetStatus report zero affected rows, as if a
	// concurrent resolver committed first.
	loseRace bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[int]*models.Reimbursement)}
}

func (f *fakeStore) all() []models.Reimbursement {
	out := make([]models.Reimbursement, 0, len(f.byID))
	for i := 1; i <= f.nextID; i++ {
		if rb, ok := f.byID[i]; ok {
			out = append(out, *rb)
		}
	}
	return out
}

func (f *fakeStore) GetAll(context.Context) ([]models.Reimbursement, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	return f.all(), nil
}

func (f *fakeStore) GetByID(_ context.Context, id int) (*models.Reimbursement, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	rb, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *rb
	return &cp, nil
}

func (f *fakeStore) GetAllForAuthor(_ context.Context, username string) ([]models.Reimbursement, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var out []models.Reimbursement
	for _, rb := range f.all() {
		if rb.Author == username {
			out = append(out, rb)
		}
	}
	return out, nil
}

func (f *fakeStore) FilterByType(_ context.Context, name string) ([]models.Reimbursement, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var out []models.Reimbursement
	for _, rb := range f.all() {
		if rb.Type == name {
			out = append(out, rb)
		}
	}
	return out, nil
}

func (f *fakeStore) FilterByStatus(_ context.Context, name string) ([]models.Reimbursement, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var out []models.Reimbursement
	for _, rb := range f.all() {
		if rb.Status == name {
			out = append(out, rb)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, rb *models.Reimbursement) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	f.nextID++
	rb.ID = f.nextID
	rb.Submitted = time.Now().UTC()
	rb.Status = models.StatusPending
	rb.Resolved = nil
	rb.Resolver = nil
	cp := *rb
	f.byID[rb.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, rb *models.Reimbursement) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	cur, ok := f.byID[rb.ID]
	if !ok {
		return false, nil
	}
	cur.Amount = rb.Amount
	cur.Description = rb.Description
	cur.Author = rb.Author
	cur.Type = rb.Type
	return true, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id int, status, resolverIdentity string, resolvedAt time.Time) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	if f.loseRace {
		f.loseRace = false
		return false, nil
	}
	cur, ok := f.byID[id]
	if !ok || cur.Status != models.StatusPending {
		return false, nil
	}
	cur.Status = status
	cur.Resolver = &resolverIdentity
	cur.Resolved = &resolvedAt
	return true, nil
}

func (f *fakeStore) DeleteByID(_ context.Context, id int) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	delete(f.byID, id)
	return nil
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	byName map[string]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{byName: make(map[string]*models.User)}
	for i := range users {
		f.byName[users[i].Username] = &users[i]
	}
	return f
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

var errBoom = errs.Storage("query failed", context.DeadlineExceeded)
