package handler

import (
	"net/http"

	"labor_pipeline_backend/internal/evidence/service"
	"labor_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles evidence uploads and download links.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Upload)
	rg.GET("/download", h.Download)
}

// Upload accepts a multipart form with kind, subjectId and file.
func (h *Handler) Upload(c *gin.Context) {
	kind, err := service.ParseKind(c.PostForm("kind"))
	if httpkit.HandleError(c, err) {
		return
	}
	subjectID, err := uuid.Parse(c.PostForm("subjectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "subjectId must be a uuid")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "file is required")
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	file, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	stored, err := h.svc.Upload(c.Request.Context(), service.UploadInput{
		Kind:        kind,
		SubjectID:   subjectID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		ActorID:     identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, stored)
}

func (h *Handler) Download(c *gin.Context) {
	link, err := h.svc.DownloadURL(c.Request.Context(), c.Query("path"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, link)
}
