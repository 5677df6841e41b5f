package handler

import (
	"net/http"

	"labor_pipeline_backend/internal/departures/domain"
	"labor_pipeline_backend/internal/departures/service"
	"labor_pipeline_backend/internal/departures/transport"
	"labor_pipeline_backend/platform/httpkit"
	"labor_pipeline_backend/platform/sanitize"
	"labor_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for departures.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Open)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/checklist/:item", h.MarkChecklistItem)
	rg.PUT("/:id/ticket", h.UpdateTicket)
	rg.GET("/:id/readiness", h.Readiness)
	rg.POST("/:id/depart", h.MarkDeparted)
}

func (h *Handler) Open(c *gin.Context) {
	var req transport.OpenDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	d, err := h.svc.Open(c.Request.Context(), req.CandidateID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToDepartureResponse(d))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDepartureResponse(d))
}

func (h *Handler) MarkChecklistItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := domain.ParseItem(c.Param("item"))
	if httpkit.HandleError(c, err) {
		return
	}
	var req transport.ChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	value, err := req.ItemValue()
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	d, err := h.svc.MarkChecklistItem(c.Request.Context(), service.MarkChecklistInput{
		DepartureID: id,
		Item:        item,
		Value:       value,
		ActorID:     identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDepartureResponse(d))
}

func (h *Handler) UpdateTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ticket := domain.Ticket{
		Number:     sanitize.Text(req.Number),
		Airline:    sanitize.Text(req.Airline),
		FlightDate: req.FlightDate,
	}
	d, err := h.svc.UpdateTicket(c.Request.Context(), id, ticket, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDepartureResponse(d))
}

func (h *Handler) Readiness(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.svc.EvaluateReadiness(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToReadinessResponse(r))
}

func (h *Handler) MarkDeparted(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	d, err := h.svc.MarkDeparted(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDepartureResponse(d))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
