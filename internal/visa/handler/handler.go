package handler

import (
	"net/http"

	"labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/internal/visa/service"
	"labor_pipeline_backend/internal/visa/transport"
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

// Handler handles HTTP requests for visa processes.
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
	rg.PUT("/:id/stages/:stage", h.RecordStageOutcome)
}

// RegisterAdminRoutes mounts the override endpoint on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id/stages/:stage/override", h.OverrideStage)
}

func (h *Handler) Open(c *gin.Context) {
	var req transport.OpenVisaProcessRequest
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
	v, err := h.svc.Open(c.Request.Context(), req.CandidateID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToVisaProcessResponse(v))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisaProcessResponse(v))
}

func (h *Handler) RecordStageOutcome(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.StageOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	outcome, err := toOutcome(c.Param("stage"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	v, err := h.svc.RecordStageOutcome(c.Request.Context(), service.RecordStageInput{
		VisaProcessID: id,
		Outcome:       outcome,
		ActorID:       identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisaProcessResponse(v))
}

func (h *Handler) OverrideStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.StageOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	outcome, err := toOutcome(c.Param("stage"), req.StageOutcomeRequest)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	v, err := h.svc.AdminOverrideStage(c.Request.Context(), service.OverrideStageInput{
		VisaProcessID: id,
		Outcome:       outcome,
		Reason:        sanitize.Text(req.Reason),
		ActorID:       identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisaProcessResponse(v))
}

func toOutcome(rawStage string, req transport.StageOutcomeRequest) (domain.Outcome, error) {
	stage, err := domain.ParseStage(rawStage)
	if err != nil {
		return domain.Outcome{}, err
	}
	status, err := domain.ParseStageStatus(req.Status)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{
		Stage:  stage,
		Status: status,
		Details: domain.StageDetails{
			OutcomeDate: req.OutcomeDate,
			Center:      sanitize.Text(req.Center),
			Reference:   sanitize.Text(req.Reference),
			Notes:       sanitize.Text(req.Notes),
		},
		EvidencePath: req.EvidencePath,
	}, nil
}
