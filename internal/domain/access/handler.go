package access

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vidaplus/convenio-api/internal/platform/auth"
	"github.com/vidaplus/convenio-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/access/grants", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.Grant)
	admin.GET("/:professionalId", h.List)
	admin.DELETE("/:professionalId", h.Revoke)

	api.GET("/access/status", h.Status, auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoActiveGrant):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "grant not found")
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type grantRequest struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	Reason         string    `json:"reason"`
}

func (h *Handler) Grant(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProfessionalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "professional_id is required")
	}

	var grantedBy *uuid.UUID
	if adminID, err := uuid.Parse(auth.ActorIDFromContext(c.Request().Context())); err == nil {
		grantedBy = &adminID
	}

	g, err := h.svc.Grant(c.Request().Context(), req.ProfessionalID, req.ExpiresAt, req.Reason, grantedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) Revoke(c echo.Context) error {
	professionalID, err := uuid.Parse(c.Param("professionalId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid professional id")
	}
	g, err := h.svc.Revoke(c.Request().Context(), professionalID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) List(c echo.Context) error {
	professionalID, err := uuid.Parse(c.Param("professionalId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid professional id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), professionalID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusResponse struct {
	Effective bool       `json:"effective"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Status lets a professional check their own access without seeing anyone
// else's ledger.
func (h *Handler) Status(c echo.Context) error {
	professionalID, err := uuid.Parse(auth.ActorIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	resp := statusResponse{}
	g, err := h.svc.Current(c.Request().Context(), professionalID)
	switch {
	case errors.Is(err, ErrNotFound):
		// No grant at all: effective stays false.
	case err != nil:
		return httpError(err)
	default:
		resp.Effective = g.Effective(time.Now())
		resp.ExpiresAt = &g.ExpiresAt
	}
	return c.JSON(http.StatusOK, resp)
}
