package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// stubService backs all three server contracts with canned data so handler
// tests exercise routing, auth and status mapping without a database.
type stubService struct {
	records map[int]*models.Reimbursement
	users   map[string]*models.User

	// lastResolver records the identity passed to Resolve.
	lastResolver string
	forcedErr    error
}

const stubPassword = "pw"

func newStubService() *stubService {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &stubService{
		records: map[int]*models.Reimbursement{
			1: {
				ID: 1, Amount: decimal.NewFromFloat(120.50), Submitted: now,
				Description: "flight", Author: "alice",
				Status: models.StatusPending, Type: "travel",
			},
			2: {
				ID: 2, Amount: decimal.NewFromFloat(45), Submitted: now,
				Description: "dinner", Author: "carol",
				Status: models.StatusPending, Type: "food",
			},
		},
		users: map[string]*models.User{
			"alice": {ID: 1, Username: "alice", Email: "alice@example.com", Role: models.RoleEmployee},
			"bob":   {ID: 2, Username: "bob", Email: "bob@example.com", Role: models.RoleManager},
			"root":  {ID: 3, Username: "root", Email: "root@example.com", Role: models.RoleAdmin},
			"carol": {ID: 4, Username: "carol", Email: "carol@example.com", Role: models.RoleEmployee},
		},
	}
}

func (s *stubService) List(context.Context) ([]models.Reimbursement, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}
	var out []models.Reimbursement
	for _, rb := range s.records {
		out = append(out, *rb)
	}
	if len(out) == 0 {
		return nil, errs.NotFoundf("there are no reimbursements")
	}
	return out, nil
}

func (s *stubService) Get(_ context.Context, id int) (*models.Reimbursement, error) {
	rb, ok := s.records[id]
	if !ok {
		return nil, errs.NotFoundf("no reimbursement with id %d", id)
	}
	cp := *rb
	return &cp, nil
}

func (s *stubService) ListForUser(_ context.Context, username string) ([]models.Reimbursement, error) {
	var out []models.Reimbursement
	for _, rb := range s.records {
		if rb.Author == username {
			out = append(out, *rb)
		}
	}
	if len(out) == 0 {
		return nil, errs.NotFoundf("no reimbursements for %q", username)
	}
	return out, nil
}

func (s *stubService) FilterByType(_ context.Context, name string) ([]models.Reimbursement, error) {
	var out []models.Reimbursement
	for _, rb := range s.records {
		if rb.Type == name {
			out = append(out, *rb)
		}
	}
	if len(out) == 0 {
		return nil, errs.NotFoundf("no reimbursements of type %q", name)
	}
	return out, nil
}

func (s *stubService) FilterByStatus(_ context.Context, name string) ([]models.Reimbursement, error) {
	var out []models.Reimbursement
	for _, rb := range s.records {
		if rb.Status == name {
			out = append(out, *rb)
		}
	}
	if len(out) == 0 {
		return nil, errs.NotFoundf("no reimbursements in status %q", name)
	}
	return out, nil
}

func (s *stubService) Submit(_ context.Context, rb *models.Reimbursement) (*models.Reimbursement, error) {
	if !rb.Amount.IsPositive() {
		return nil, errs.InvalidInputf("amount must be positive")
	}
	rb.ID = len(s.records) + 1
	rb.Status = models.StatusPending
	rb.Submitted = time.Now().UTC()
	cp := *rb
	s.records[rb.ID] = &cp
	return rb, nil
}

func (s *stubService) Update(_ context.Context, rb *models.Reimbursement) (bool, error) {
	cur, ok := s.records[rb.ID]
	if !ok {
		return false, errs.NotFoundf("no reimbursement with id %d", rb.ID)
	}
	if models.IsTerminalStatus(cur.Status) {
		return false, errs.InvalidStatef("reimbursement %d is already resolved", rb.ID)
	}
	cur.Amount = rb.Amount
	cur.Description = rb.Description
	cur.Type = rb.Type
	return true, nil
}

func (s *stubService) Resolve(_ context.Context, id int, decision, resolverIdentity string) (bool, error) {
	s.lastResolver = resolverIdentity
	cur, ok := s.records[id]
	if !ok {
		return false, errs.NotFoundf("no reimbursement with id %d", id)
	}
	if models.IsTerminalStatus(cur.Status) {
		return false, errs.InvalidStatef("reimbursement %d is already resolved", id)
	}
	cur.Status = decision
	cur.Resolver = &resolverIdentity
	now := time.Now().UTC()
	cur.Resolved = &now
	return true, nil
}

func (s *stubService) Delete(_ context.Context, id int) (bool, error) {
	delete(s.records, id)
	return true, nil
}

func (s *stubService) ListUsers(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubService) GetUser(_ context.Context, id int) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("no user with id %d", id)
}

func (s *stubService) Register(_ context.Context, u *models.User, password string) (*models.User, error) {
	if _, exists := s.users[u.Username]; exists {
		return nil, errs.InvalidInputf("username or email already taken")
	}
	u.ID = len(s.users) + 1
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	cp := *u
	s.users[u.Username] = &cp
	return u, nil
}

func (s *stubService) UpdateUser(_ context.Context, u *models.User) (bool, error) {
	for _, cur := range s.users {
		if cur.ID == u.ID {
			*cur = *u
			return true, nil
		}
	}
	return false, nil
}

func (s *stubService) DeleteUser(_ context.Context, id int) (bool, error) {
	for name, u := range s.users {
		if u.ID == id {
			delete(s.users, name)
			return true, nil
		}
	}
	return true, nil
}

func (s *stubService) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	u, ok := s.users[username]
	if !ok || password != stubPassword {
		return nil, errs.Forbiddenf("invalid credentials")
	}
	cp := *u
	return &cp, nil
}

// userAPIAdapter maps the user endpoints onto the stub's ListUsers and
// friends so one stub can serve both handler contracts.
type userAPIAdapter struct{ *stubService }

func (a userAPIAdapter) List(ctx context.Context) ([]models.User, error) { return a.ListUsers(ctx) }
func (a userAPIAdapter) Get(ctx context.Context, id int) (*models.User, error) {
	return a.GetUser(ctx, id)
}
func (a userAPIAdapter) Update(ctx context.Context, u *models.User) (bool, error) {
	return a.UpdateUser(ctx, u)
}
func (a userAPIAdapter) Delete(ctx context.Context, id int) (bool, error) {
	return a.DeleteUser(ctx, id)
}

func newTestServer(t *testing.T) (*Server, *stubService) {
	t.Helper()
	stub := newStubService()
	return New(":0", stub, userAPIAdapter{stub}, stub), stub
}

func doRequest(t *testing.T, srv *Server, method, target, username, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if username != "" {
		req.SetBasicAuth(username, stubPassword)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	t.Run("missing credentials are unauthorized", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad password is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reimbursements", nil)
		req.SetBasicAuth("bob", "wrong")
		rec := httptest.NewRecorder()
		srv.Engine().ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRoleGuards(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	t.Run("employee may not list all reimbursements", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements", "alice", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("manager may list all reimbursements", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements", "bob", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var out []reimbursementResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 2)
	})

	t.Run("employee may not delete", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodDelete, "/reimbursements/1", "alice", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("manager may not manage users", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/users", "bob", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin may manage users", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/users", "root", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestOwnership(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	t.Run("author can read their own record", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/1", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var out reimbursementResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Equal(t, "alice", out.Author)
	})

	t.Run("another employee cannot", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/2", "alice", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("a manager can", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/2", "bob", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("employee cannot submit on someone else's behalf", func(t *testing.T) {
		body := `{"amount":"10.00","description":"sneaky","author":"carol","type":"food"}`
		rec := doRequest(t, srv, http.MethodPost, "/reimbursements", "alice", body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("employee cannot list another author's records", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/author/carol", "alice", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSubmitEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	t.Run("accepts a valid submission", func(t *testing.T) {
		body := `{"amount":"75.25","description":"conference hotel","author":"alice","type":"lodging"}`
		rec := doRequest(t, srv, http.MethodPost, "/reimbursements", "alice", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var out reimbursementResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.NotZero(t, out.ID)
		require.Equal(t, models.StatusPending, out.Status)
		require.Nil(t, out.Resolver)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		body := `{"amount":"75.25","author":"alice"}`
		rec := doRequest(t, srv, http.MethodPost, "/reimbursements", "alice", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/reimbursements", "alice", `{"amount":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("resolver identity comes from the caller", func(t *testing.T) {
		srv, stub := newTestServer(t)

		body := `{"status":"approved"}`
		rec := doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "bob", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "bob", stub.lastResolver)

		var out affectedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.True(t, out.Success)
	})

	t.Run("body cannot smuggle a resolver", func(t *testing.T) {
		srv, stub := newTestServer(t)

		body := `{"status":"denied","resolver":"alice"}`
		rec := doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "root", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "root", stub.lastResolver)
	})

	t.Run("employee may not resolve", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "alice", `{"status":"approved"}`)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid decisions fail validation", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "bob", `{"status":"maybe"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already resolved maps to bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "bob", `{"status":"approved"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, srv, http.MethodPut, "/reimbursements/1/status", "bob", `{"status":"denied"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	t.Run("missing record maps to 404", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/999", "bob", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad path id maps to 400", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doRequest(t, srv, http.MethodGet, "/reimbursements/zero", "bob", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage failures are masked as 500", func(t *testing.T) {
		srv, stub := newTestServer(t)
		stub.forcedErr = errs.Storage("query failed", context.DeadlineExceeded)

		rec := doRequest(t, srv, http.MethodGet, "/reimbursements", "bob", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "query failed")
		require.Contains(t, rec.Body.String(), "internal server error")
	})
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("admin registers a user", func(t *testing.T) {
		srv, _ := newTestServer(t)

		body := `{"username":"dora","password":"pw2","email":"dora@example.com","role":"employee"}`
		rec := doRequest(t, srv, http.MethodPost, "/users", "root", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var out userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Equal(t, "dora", out.Username)
		require.NotContains(t, rec.Body.String(), "pw2")
	})

	t.Run("register rejects an invalid role", func(t *testing.T) {
		srv, _ := newTestServer(t)

		body := `{"username":"eve","password":"pw","email":"eve@example.com","role":"wizard"}`
		rec := doRequest(t, srv, http.MethodPost, "/users", "root", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin updates a role", func(t *testing.T) {
		srv, stub := newTestServer(t)

		body := `{"username":"alice","email":"alice@example.com","role":"manager"}`
		rec := doRequest(t, srv, http.MethodPut, "/users/1", "root", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, models.RoleManager, stub.users["alice"].Role)
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		srv, stub := newTestServer(t)

		rec := doRequest(t, srv, http.MethodDelete, "/users/4", "root", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotContains(t, stub.users, "carol")
	})
}
