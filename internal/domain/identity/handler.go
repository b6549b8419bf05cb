package identity

import (
	"errors"
	"net/http"
	"time"

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

// RegisterRoutes mounts the auth endpoints on public and the profile
// endpoints on protected, which must already run auth.Authenticate.
func (h *Handler) RegisterRoutes(public *echo.Group, protected *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	protected.POST("/auth/logout", h.Logout)
	protected.GET("/profile", h.GetProfile)
	protected.PUT("/profile", h.UpdateProfile)
}

type sessionResponse struct {
	Message   string    `json:"message"`
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apierror.Bind(err)
	}
	sess, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, sessionResponse{
		Message:   "User registered successfully",
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return apierror.Bind(err)
	}
	sess, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sessionResponse{
		Message:   "Login successful",
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	if err := h.svc.Logout(c.Request().Context(), p); err != nil {
		return apierror.Internal("logout failed", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) GetProfile(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	u, err := h.svc.GetProfile(c.Request().Context(), p.UserID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return apierror.Unauthorized("access token required")
	}
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return apierror.Bind(err)
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), p.UserID, upd)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Profile updated",
		"user":    u,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrEmailOrPhoneTaken), errors.Is(err, ErrPhoneTaken):
		return apierror.Conflict(err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return apierror.InvalidCredentials()
	case errors.Is(err, ErrNotFound):
		return apierror.NotFound("user")
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Internal("internal server error", err)
}
