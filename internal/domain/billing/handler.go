package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vidaplus/convenio-api/internal/domain/network"
	"github.com/vidaplus/convenio-api/internal/platform/auth"
	"github.com/vidaplus/convenio-api/internal/platform/gateway"
	"github.com/vidaplus/convenio-api/pkg/pagination"
)

type Handler struct {
	issuer     *Issuer
	reconciler *Reconciler
}

func NewHandler(issuer *Issuer, reconciler *Reconciler) *Handler {
	return &Handler{issuer: issuer, reconciler: reconciler}
}

// RegisterRoutes wires the authenticated intent endpoints and the public
// webhook. The webhook carries no bearer token; the gateway fetch inside the
// reconciler is what authenticates its content.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	g := api.Group("/payments")
	g.POST("/subscription", h.IssueSubscription, auth.RequireRole(auth.RoleAdmin, auth.RoleMember))
	g.POST("/dependent", h.IssueDependentActivation, auth.RequireRole(auth.RoleAdmin, auth.RoleMember))
	g.POST("/settlement", h.IssueSettlement, auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
	g.POST("/agenda", h.IssueAgendaAccess, auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
	g.GET("", h.ListByEntity, auth.RequireRole(auth.RoleAdmin))

	public.POST("/payments/webhook", h.Webhook)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, network.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrAlreadyActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type subscriptionRequest struct {
	MemberID uuid.UUID `json:"member_id"`
}

func (h *Handler) IssueSubscription(c echo.Context) error {
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MemberID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "member_id is required")
	}
	result, err := h.issuer.IssueSubscription(c.Request().Context(), req.MemberID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type dependentRequest struct {
	DependentID uuid.UUID `json:"dependent_id"`
}

func (h *Handler) IssueDependentActivation(c echo.Context) error {
	var req dependentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DependentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dependent_id is required")
	}
	result, err := h.issuer.IssueDependentActivation(c.Request().Context(), req.DependentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type settlementRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) IssueSettlement(c echo.Context) error {
	var req settlementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := uuid.Parse(auth.ActorIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	result, err := h.issuer.IssueSettlement(c.Request().Context(), professionalID, req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type agendaRequest struct {
	DurationDays int `json:"duration_days"`
}

func (h *Handler) IssueAgendaAccess(c echo.Context) error {
	var req agendaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := uuid.Parse(auth.ActorIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	result, err := h.issuer.IssueAgendaAccess(c.Request().Context(), professionalID, req.DurationDays)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListByEntity(c echo.Context) error {
	entityID, err := uuid.Parse(c.QueryParam("entity_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entity_id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.issuer.ListByEntity(c.Request().Context(), entityID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Webhook accepts gateway notifications either as query parameters or as a
// JSON body. Consumed notifications always get a 200 so the gateway stops
// redelivering; only a failed authoritative fetch returns an error status.
func (h *Handler) Webhook(c echo.Context) error {
	notifType := c.QueryParam("type")
	if notifType == "" {
		notifType = c.QueryParam("topic")
	}
	paymentID := c.QueryParam("data.id")
	if paymentID == "" {
		paymentID = c.QueryParam("id")
	}

	if notifType == "" || paymentID == "" {
		var body webhookBody
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed notification")
		}
		if notifType == "" {
			notifType = body.Type
		}
		if paymentID == "" {
			paymentID = body.Data.ID
		}
	}

	if notifType == "" || paymentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed notification")
	}

	if err := h.reconciler.HandleNotification(c.Request().Context(), notifType, paymentID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
