package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *echo.Group) {
	protected.GET("/notifications", h.List)
	protected.GET("/notifications/unread-count", h.UnreadCount)
	protected.PATCH("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return apierror.Internal("failed to list notifications", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), p.UserID)
	if err != nil {
		return apierror.Internal("failed to count notifications", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierror.Validation("invalid id")
	}
	err = h.svc.MarkRead(c.Request().Context(), id, p.UserID)
	if errors.Is(err, ErrNotFound) {
		return apierror.NotFound("notification")
	}
	if err != nil {
		return apierror.Internal("failed to update notification", err)
	}
	return c.NoContent(http.StatusNoContent)
}
