package dashboard

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *echo.Group) {
	protected.GET("/dashboard/stats/:userId", h.Stats)
}

func (h *Handler) Stats(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apierror.Validation("invalid user id")
	}
	stats, err := h.svc.Stats(c.Request().Context(), p, userID)
	switch {
	case errors.Is(err, ErrForbidden):
		return apierror.Forbidden(err.Error())
	case errors.Is(err, ErrUserNotFound):
		return apierror.NotFound("user")
	case err != nil:
		return apierror.Internal("failed to load dashboard stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}
