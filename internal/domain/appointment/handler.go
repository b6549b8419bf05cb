package appointment

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

// RegisterRoutes mounts the appointment endpoints on protected, which must
// already run auth.Authenticate.
func (h *Handler) RegisterRoutes(protected *echo.Group) {
	protected.POST("/appointments", h.Book, auth.RequireUserType(auth.UserTypePatient))
	protected.GET("/appointments/:userId", h.List)
	protected.PATCH("/appointments/:id/status", h.UpdateStatus)
}

func (h *Handler) Book(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return apierror.Bind(err)
	}
	a, err := h.svc.Book(c.Request().Context(), p.UserID, in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully",
		"appointment": a,
	})
}

func (h *Handler) List(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apierror.Validation("invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p, userID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierror.Validation("invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Bind(err)
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), p, id, req.Status)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "Appointment updated",
		"appointment": a,
	})
}

func mapError(err error) error {
	var te *TransitionError
	switch {
	case errors.Is(err, ErrSlotTaken):
		return apierror.SlotUnavailable()
	case errors.Is(err, ErrNotFound):
		return apierror.NotFound("appointment")
	case errors.Is(err, ErrDoctorNotFound):
		return apierror.NotFound("doctor")
	case errors.Is(err, ErrUserNotFound):
		return apierror.NotFound("user")
	case errors.Is(err, ErrForbidden):
		return apierror.Forbidden(err.Error())
	case errors.As(err, &te):
		return apierror.InvalidTransition(te.From, te.To)
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Internal("internal server error", err)
}
