package consultation

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vidaplus/convenio-api/internal/domain/network"
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
	g := api.Group("/consultations", auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
	g.POST("", h.Create)
	g.POST("/recurring", h.CreateRecurring)
	g.GET("/agenda", h.ListAgenda)
	g.GET("/patient/:memberId", h.ListPatientHistory)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.SetStatus)
	g.DELETE("/:id", h.Delete)
}

// actorID extracts the authenticated professional's id from the request
// context.
func actorID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.ActorIDFromContext(c.Request().Context()))
}

// httpError maps domain errors onto HTTP statuses. Not-found and not-owned
// are indistinguishable to the caller.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, network.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrAgendaAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, network.ErrSubscriptionInactive):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, network.ErrInvalidPatientSelection):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createRequest struct {
	MemberID         *uuid.UUID `json:"member_id"`
	DependentID      *uuid.UUID `json:"dependent_id"`
	PrivatePatientID *uuid.UUID `json:"private_patient_id"`
	ServiceID        uuid.UUID  `json:"service_id"`
	LocationID       *uuid.UUID `json:"location_id"`
	Value            float64    `json:"value"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	Notes            *string    `json:"notes"`
}

func (r createRequest) toInput() CreateInput {
	return CreateInput{
		Patient: network.PatientRef{
			MemberID:         r.MemberID,
			DependentID:      r.DependentID,
			PrivatePatientID: r.PrivatePatientID,
		},
		ServiceID:   r.ServiceID,
		LocationID:  r.LocationID,
		Value:       r.Value,
		ScheduledAt: r.ScheduledAt,
		Notes:       r.Notes,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	created, err := h.svc.Create(c.Request().Context(), professionalID, req.toInput())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

type recurringRequest struct {
	createRequest
	TimezoneOffsetMinutes int        `json:"timezone_offset_minutes"`
	Unit                  string     `json:"unit"`
	Interval              int        `json:"interval"`
	Occurrences           int        `json:"occurrences"`
	EndDate               *time.Time `json:"end_date"`
}

func (h *Handler) CreateRecurring(c echo.Context) error {
	var req recurringRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	result, err := h.svc.GenerateRecurring(c.Request().Context(), professionalID, RecurrenceRequest{
		Patient: network.PatientRef{
			MemberID:         req.MemberID,
			DependentID:      req.DependentID,
			PrivatePatientID: req.PrivatePatientID,
		},
		ServiceID:             req.ServiceID,
		LocationID:            req.LocationID,
		Value:                 req.Value,
		Start:                 req.ScheduledAt,
		TimezoneOffsetMinutes: req.TimezoneOffsetMinutes,
		Unit:                  req.Unit,
		Interval:              req.Interval,
		Occurrences:           req.Occurrences,
		EndDate:               req.EndDate,
		Notes:                 req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	cons, err := h.svc.Get(c.Request().Context(), id, professionalID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cons)
}

type updateRequest struct {
	ServiceID   *uuid.UUID `json:"service_id"`
	LocationID  *uuid.UUID `json:"location_id"`
	Value       *float64   `json:"value"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *string    `json:"status"`
	Notes       *string    `json:"notes"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	cons, err := h.svc.UpdateFull(c.Request().Context(), id, professionalID, UpdateInput{
		ServiceID:   req.ServiceID,
		LocationID:  req.LocationID,
		Value:       req.Value,
		ScheduledAt: req.ScheduledAt,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cons)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	cons, err := h.svc.SetStatus(c.Request().Context(), id, professionalID, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	if err := h.svc.Delete(c.Request().Context(), id, professionalID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAgenda(c echo.Context) error {
	professionalID, err := actorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		date = &d
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForAgenda(c.Request().Context(), professionalID, date, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientHistory(c echo.Context) error {
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid member id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatientHistory(c.Request().Context(), memberID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
