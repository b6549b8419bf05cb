package pharmacy

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

// RegisterRoutes mounts the public catalogue on public and the order
// endpoints on protected.
func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.GET("/medicines", h.ListMedicines)
	protected.POST("/orders", h.PlaceOrder)
	protected.GET("/orders/:userId", h.ListOrders)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	}
	items, total, err := h.svc.ListMedicines(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return apierror.Internal("failed to list medicines", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	var in OrderInput
	if err := c.Bind(&in); err != nil {
		return apierror.Bind(err)
	}
	order, err := h.svc.PlaceOrder(c.Request().Context(), p.UserID, in)
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Order placed successfully",
		"order":   order,
	})
}

func (h *Handler) ListOrders(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apierror.Validation("invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOrders(c.Request().Context(), p, userID, pg.Limit, pg.Offset)
	if errors.Is(err, ErrForbidden) {
		return apierror.Forbidden(err.Error())
	}
	if err != nil {
		return apierror.Internal("failed to list orders", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func mapOrderError(err error) error {
	var stock *StockError
	if errors.As(err, &stock) {
		return apierror.OrderFailed(stock.Error())
	}
	if errors.Is(err, ErrMedicineNotFound) {
		return apierror.OrderFailed(err.Error())
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &apierror.Error{
		Status:  http.StatusInternalServerError,
		Code:    apierror.CodeOrderFailed,
		Message: "order could not be placed",
		Cause:   err,
	}
}
