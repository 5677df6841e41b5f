package handler

import (
	"net/http"

	"labor_pipeline_backend/internal/training/domain"
	"labor_pipeline_backend/internal/training/service"
	"labor_pipeline_backend/internal/training/transport"
	"labor_pipeline_backend/platform/httpkit"
	"labor_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for trainings.
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
	rg.POST("/:id/assessments", h.RecordAssessment)
	rg.GET("/:id/tracks/:track", h.EvaluateTrack)
	rg.POST("/:id/tracks/:track/complete", h.CompleteTrack)
	rg.POST("/:id/certificate", h.IssueCertificate)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTrainingRequest
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

	t, err := h.svc.Create(c.Request.Context(), req.CandidateID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToTrainingResponse(t))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTrainingResponse(t))
}

func (h *Handler) RecordAssessment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RecordAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	assessmentType, err := domain.ParseAssessmentType(req.AssessmentType)
	if httpkit.HandleError(c, err) {
		return
	}
	trainingType, err := domain.ParseTrainingType(req.TrainingType)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	a, err := h.svc.RecordAssessment(c.Request.Context(), service.RecordAssessmentInput{
		TrainingID:     id,
		AssessmentType: assessmentType,
		TrainingType:   trainingType,
		Score:          *req.Score,
		MaxScore:       *req.MaxScore,
		EvidencePath:   req.EvidencePath,
		ActorID:        identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToAssessmentResponse(a))
}

func (h *Handler) EvaluateTrack(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	track, err := domain.ParseTrack(c.Param("track"))
	if httpkit.HandleError(c, err) {
		return
	}
	result, err := h.svc.EvaluateTrack(c.Request.Context(), id, track)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) CompleteTrack(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	track, err := domain.ParseTrack(c.Param("track"))
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	t, err := h.svc.CompleteTrack(c.Request.Context(), id, track, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTrainingResponse(t))
}

func (h *Handler) IssueCertificate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	t, err := h.svc.IssueCertificate(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTrainingResponse(t))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
