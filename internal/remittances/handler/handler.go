package handler

import (
	"net/http"
	"time"

	"labor_pipeline_backend/internal/remittances/service"
	"labor_pipeline_backend/internal/remittances/transport"
	"labor_pipeline_backend/platform/httpkit"
	"labor_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for remittances and compliance alerts.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(remittances, alerts *gin.RouterGroup) {
	remittances.POST("", h.Record)
	alerts.GET("", h.ListAlerts)
	alerts.GET("/:id", h.GetAlert)
	alerts.POST("/:id/resolve", h.ResolveAlert)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/compliance-scan", h.Scan)
}

func (h *Handler) Record(c *gin.Context) {
	var req transport.RecordRemittanceRequest
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

	res, err := h.svc.Record(c.Request.Context(), service.RecordInput{
		CandidateID:   req.CandidateID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransferredAt: req.TransferredAt,
		Reference:     req.Reference,
		ActorID:       identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToRemittanceResponse(res))
}

func (h *Handler) ListAlerts(c *gin.Context) {
	var q transport.ListAlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	candidateID, err := uuid.Parse(q.CandidateID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	alerts, err := h.svc.ListAlerts(c.Request.Context(), candidateID, q.IncludeResolved)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAlertResponses(alerts))
}

func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := h.svc.GetAlert(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAlertResponse(alert))
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ResolveAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	alert, err := h.svc.ResolveAlert(c.Request.Context(), id, req.ResolutionNotes, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAlertResponse(alert))
}

// Scan runs the compliance scan on demand. An empty body scans as of now.
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
	res, err := h.svc.ScanCompliance(c.Request.Context(), asOf)
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
