package handler

import (
	"net/http"
	"time"

	"labor_pipeline_backend/internal/complaints/domain"
	"labor_pipeline_backend/internal/complaints/service"
	"labor_pipeline_backend/internal/complaints/transport"
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

// Handler handles HTTP requests for complaints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Register)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/escalations", h.ListEscalations)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/escalate", h.Escalate)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/sla-scan", h.Scan)
}

func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	priority, err := domain.ParsePriority(req.Priority)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	complaint, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		CandidateID:  req.CandidateID,
		Category:     sanitize.Text(req.Category),
		Description:  sanitize.Text(req.Description),
		Priority:     priority,
		SLADays:      req.SLADays,
		RegisteredAt: req.RegisteredAt,
		AssignedTo:   req.AssignedTo,
		ActorID:      identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToComplaintResponse(complaint))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	complaint, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

func (h *Handler) ListEscalations(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	items, err := h.svc.Escalations(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEscalationResponses(items))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	complaint, err := h.svc.UpdateStatus(c.Request.Context(), id, status, sanitize.TextPtr(req.ResolutionNotes), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

func (h *Handler) Escalate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.EscalateRequest
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

	complaint, err := h.svc.Escalate(c.Request.Context(), service.EscalateInput{
		ComplaintID: id,
		Reason:      sanitize.Text(req.Reason),
		EscalatedTo: req.EscalatedTo,
		ActorID:     identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

// Scan runs the breach scan on demand. An empty body scans as of now.
func (h *Handler) Scan(c *gin.Context) {
	var req transport.ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	res, err := h.svc.ScanForBreaches(c.Request.Context(), asOf)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToScanResponse(res))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
