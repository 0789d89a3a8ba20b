package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/models"
)

// ReimbursementAPI is the service contract the handlers call.
// Implemented by service.ReimbursementService.
type ReimbursementAPI interface {
	List(ctx context.Context) ([]models.Reimbursement, error)
	Get(ctx context.Context, id int) (*models.Reimbursement, error)
	ListForUser(ctx context.Context, username string) ([]models.Reimbursement, error)
	FilterByType(ctx context.Context, name string) ([]models.Reimbursement, error)
	FilterByStatus(ctx context.Context, name string) ([]models.Reimbursement, error)
	Submit(ctx context.Context, rb *models.Reimbursement) (*models.Reimbursement, error)
	Update(ctx context.Context, rb *models.Reimbursement) (bool, error)
	Resolve(ctx context.Context, id int, decision, resolverIdentity string) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

// ReimbursementHandler exposes the reimbursement endpoints.
type ReimbursementHandler struct {
	svc ReimbursementAPI
}

// NewReimbursementHandler creates a new ReimbursementHandler.
func NewReimbursementHandler(svc ReimbursementAPI) *ReimbursementHandler {
	return &ReimbursementHandler{svc: svc}
}

type reimbursementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required"`
	Author      string          `json:"author" validate:"required"`
	Type        string          `json:"type" validate:"required"`
}

type resolveRequest struct {
	Status string `json:"status" validate:"required,oneof=approved denied"`
}

type reimbursementResponse struct {
	ID          int             `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Submitted   time.Time       `json:"submitted"`
	Resolved    *time.Time      `json:"resolved,omitempty"`
	Description string          `json:"description"`
	Author      string          `json:"author"`
	Resolver    *string         `json:"resolver,omitempty"`
	Status      string          `json:"status"`
	Type        string          `json:"type"`
}

type affectedResponse struct {
	Success bool `json:"success"`
}

func toReimbursementResponse(rb *models.Reimbursement) reimbursementResponse {
	return reimbursementResponse{
		ID:          rb.ID,
		Amount:      rb.Amount,
		Submitted:   rb.Submitted,
		Resolved:    rb.Resolved,
		Description: rb.Description,
		Author:      rb.Author,
		Resolver:    rb.Resolver,
		Status:      rb.Status,
		Type:        rb.Type,
	}
}

func toReimbursementResponses(rbs []models.Reimbursement) []reimbursementResponse {
	out := make([]reimbursementResponse, len(rbs))
	for i := range rbs {
		out[i] = toReimbursementResponse(&rbs[i])
	}
	return out
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errs.InvalidInputf("id must be a positive integer")
	}
	return id, nil
}

func (h *ReimbursementHandler) list(c echo.Context) error {
	rbs, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReimbursementResponses(rbs))
}

func (h *ReimbursementHandler) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	rb, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !canActFor(c, rb.Author) {
		return respondError(c, errs.Forbiddenf("you may only view your own reimbursements"))
	}
	return c.JSON(http.StatusOK, toReimbursementResponse(rb))
}

func (h *ReimbursementHandler) listForAuthor(c echo.Context) error {
	username := c.Param("username")
	if !canActFor(c, username) {
		return respondError(c, errs.Forbiddenf("you may only view your own reimbursements"))
	}

	rbs, err := h.svc.ListForUser(c.Request().Context(), username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReimbursementResponses(rbs))
}

func (h *ReimbursementHandler) filterByType(c echo.Context) error {
	rbs, err := h.svc.FilterByType(c.Request().Context(), c.Param("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReimbursementResponses(rbs))
}

func (h *ReimbursementHandler) filterByStatus(c echo.Context) error {
	rbs, err := h.svc.FilterByStatus(c.Request().Context(), c.Param("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReimbursementResponses(rbs))
}

func (h *ReimbursementHandler) submit(c echo.Context) error {
	var req reimbursementRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.InvalidInputf("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	if !canActFor(c, req.Author) {
		return respondError(c, errs.Forbiddenf("you may only submit your own reimbursements"))
	}

	rb := &models.Reimbursement{
		Amount:      req.Amount,
		Description: req.Description,
		Author:      req.Author,
		Type:        req.Type,
	}
	created, err := h.svc.Submit(c.Request().Context(), rb)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReimbursementResponse(created))
}

func (h *ReimbursementHandler) update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reimbursementRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.InvalidInputf("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	if !canActFor(c, req.Author) {
		return respondError(c, errs.Forbiddenf("you may only update your own reimbursements"))
	}

	rb := &models.Reimbursement{
		ID:          id,
		Amount:      req.Amount,
		Description: req.Description,
		Author:      req.Author,
		Type:        req.Type,
	}
	ok, err := h.svc.Update(c.Request().Context(), rb)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, affectedResponse{Success: ok})
}

func (h *ReimbursementHandler) resolve(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.InvalidInputf("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	// The resolver identity is the authenticated caller, never a body field.
	resolver := currentUser(c)
	if resolver == nil {
		return respondError(c, errs.Forbiddenf("authentication required"))
	}

	ok, err := h.svc.Resolve(c.Request().Context(), id, req.Status, resolver.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, affectedResponse{Success: ok})
}

func (h *ReimbursementHandler) delete(c echo.Context) error {
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
