package doctor

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public directory endpoints.
func (h *Handler) RegisterRoutes(public *echo.Group) {
	public.GET("/doctors", h.ListDoctors)
	public.GET("/doctors/:id", h.GetDoctor)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Specialty: c.QueryParam("specialty"),
		Location:  c.QueryParam("location"),
		Search:    c.QueryParam("search"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return apierror.Internal("failed to list doctors", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierror.Validation("invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return apierror.NotFound("doctor")
	}
	if err != nil {
		return apierror.Internal("failed to load doctor", err)
	}
	return c.JSON(http.StatusOK, d)
}
