package diagnostics

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

func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.GET("/diagnostic-tests", h.ListTests)
	protected.GET("/reports/:userId", h.ListReports)
	protected.POST("/reports", h.CreateReport, auth.RequireUserType(auth.UserTypeDoctor))
}

func (h *Handler) ListTests(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	}
	items, total, err := h.svc.ListTests(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListReports(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	patientID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apierror.Validation("invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReports(c.Request().Context(), p, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CreateReport(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return apierror.Bind(err)
	}
	rep, err := h.svc.CreateReport(c.Request().Context(), p, in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Report created",
		"report":  rep,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrForbidden):
		return apierror.Forbidden(err.Error())
	case errors.Is(err, ErrPatientNotFound):
		return apierror.NotFound("patient")
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Internal("internal server error", err)
}
