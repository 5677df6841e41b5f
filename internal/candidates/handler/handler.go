package handler

import (
	"net/http"

	"labor_pipeline_backend/internal/candidates/domain"
	"labor_pipeline_backend/internal/candidates/service"
	"labor_pipeline_backend/internal/candidates/transport"
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

// Handler handles HTTP requests for candidates.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transitions", h.Transition)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/reconcile", h.Reconcile)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateCandidateRequest
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
	candidate, err := h.svc.Create(c.Request.Context(), domain.Registration{
		FullName: sanitize.Text(req.FullName),
		CNIC:     req.CNIC,
		Phone:    req.Phone,
		Trade:    sanitize.Text(req.Trade),
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToCandidateResponse(candidate))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	candidate, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCandidateResponse(candidate))
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	target, err := domain.ParseStatus(req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	candidate, err := h.svc.AttemptTransition(c.Request.Context(), service.TransitionInput{
		CandidateID: id,
		Target:      target,
		Reason:      sanitize.Text(req.Reason),
		ActorID:     identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCandidateResponse(candidate))
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RejectRequest
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
	candidate, err := h.svc.Reject(c.Request.Context(), id, sanitize.Text(req.Reason), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCandidateResponse(candidate))
}

func (h *Handler) Reconcile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	candidate, err := h.svc.Reconcile(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCandidateResponse(candidate))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
