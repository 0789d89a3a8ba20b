package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// UserAPI is the service contract the user handlers call.
// Implemented by service.UserService.
type UserAPI interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int) (*models.User, error)
	Register(ctx context.Context, u *models.User, password string) (*models.User, error)
	Update(ctx context.Context, u *models.User) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

// UserHandler exposes the user admin endpoints.
type UserHandler struct {
	svc UserAPI
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserAPI) *UserHandler {
	return &UserHandler{svc: svc}
}

type registerUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"omitempty,oneof=admin manager employee"`
}

type updateUserRequest struct {
	Username  string `json:"username" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,oneof=admin manager employee"`
}

type userResponse struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

func (h *UserHandler) list(c echo.Context) error {
	users, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) register(c echo.Context) error {
	var req registerUserRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.InvalidInputf("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	u := &models.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	}
	created, err := h.svc.Register(c.Request().Context(), u, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(created))
}

func (h *UserHandler) update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.InvalidInputf("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	u := &models.User{
		ID:        id,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	}
	ok, err := h.svc.Update(c.Request().Context(), u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, affectedResponse{Success: ok})
}

func (h *UserHandler) delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	ok, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, affectedResponse{Success: ok})
}
