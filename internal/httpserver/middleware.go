package httpserver

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// Authenticator verifies credentials for the auth guard.
// Implemented by service.UserService.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

const userContextKey = "authenticated-user"

// basicAuth authenticates every request with HTTP basic auth and stores the
// caller on the request context. The guard establishes identity only; role
// checks happen per route, and the core re-validates resolver roles itself.
func basicAuth(auth Authenticator) echo.MiddlewareFunc {
	return middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
		u, err := auth.Authenticate(c.Request().Context(), username, password)
		if err != nil {
			return false, nil
		}
		c.Set(userContextKey, u)
		return true, nil
	})
}

// currentUser returns the authenticated caller, or nil outside the guard.
func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userContextKey).(*models.User)
	return u
}

// requireResolver rejects callers whose role may not approve or deny.
func requireResolver(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := currentUser(c)
		if u == nil || !models.IsResolverRole(u.Role) {
			return respondError(c, errs.Forbiddenf("resolver role required"))
		}
		return next(c)
	}
}

// requireAdmin rejects callers who are not admins.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := currentUser(c)
		if u == nil || u.Role != models.RoleAdmin {
			return respondError(c, errs.Forbiddenf("admin role required"))
		}
		return next(c)
	}
}

// canActFor reports whether the caller may read or write records belonging
// to username: everyone acts for themselves, resolvers for anyone.
func canActFor(c echo.Context, username string) bool {
	u := currentUser(c)
	if u == nil {
		return false
	}
	return u.Username == username || models.IsResolverRole(u.Role)
}
