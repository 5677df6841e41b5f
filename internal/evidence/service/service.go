// Package service stores evidence files and hands out download links. The
// returned storage path is what assessments, visa stages and complaints
// reference.
package service

import (
	"context"
	"io"
	"path"
	"strings"

	"labor_pipeline_backend/internal/adapters/storage"
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// ObjectStore is the storage port.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	Exists(ctx context.Context, bucket, fileKey string) (bool, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
}

// Kind names what the evidence belongs to and is the first path segment.
type Kind string

const (
	KindAssessment Kind = "assessments"
	KindVisa       Kind = "visa"
	KindDeparture  Kind = "departures"
	KindComplaint  Kind = "complaints"
	KindCandidate  Kind = "candidates"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindAssessment, KindVisa, KindDeparture, KindComplaint, KindCandidate:
		return k, nil
	}
	return "", apperr.Validationf("unknown evidence kind %q", raw)
}

type Service struct {
	store       ObjectStore
	bucket      string
	maxFileSize int64
	audit       audit.Recorder
	log         *logger.Logger
}

func New(store ObjectStore, bucket string, maxFileSize int64, recorder audit.Recorder, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, bucket: bucket, maxFileSize: maxFileSize, audit: recorder, log: log}
}

type UploadInput struct {
	Kind        Kind
	SubjectID   uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	ActorID     uuid.UUID
}

type Stored struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload validates and stores one file under <kind>/<subjectID>/.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Stored, error) {
	if in.SubjectID == uuid.Nil {
		return Stored{}, apperr.Validation("subject id is required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return Stored{}, apperr.Validation("file name is required")
	}
	contentType := storage.NormalizeContentType(in.ContentType)
	if err := storage.ValidateContentType(contentType); err != nil {
		return Stored{}, err
	}
	if err := storage.ValidateFileSize(in.Size, s.maxFileSize); err != nil {
		return Stored{}, err
	}

	folder := path.Join(string(in.Kind), in.SubjectID.String())
	key, err := s.store.UploadFile(ctx, s.bucket, folder, in.FileName, contentType, in.Body, in.Size)
	if err != nil {
		return Stored{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "evidence.uploaded",
		SubjectType: strings.TrimSuffix(string(in.Kind), "s"),
		SubjectID:   in.SubjectID,
		Description: key,
		Metadata:    map[string]any{"contentType": contentType, "size": in.Size},
	})
	return Stored{Path: key, ContentType: contentType, Size: in.Size}, nil
}

// DownloadURL presigns a link for a stored path.
func (s *Service) DownloadURL(ctx context.Context, fileKey string) (*storage.PresignedURL, error) {
	fileKey = strings.TrimPrefix(strings.TrimSpace(fileKey), "/")
	if fileKey == "" || path.Clean(fileKey) != fileKey || strings.HasPrefix(fileKey, "..") {
		return nil, apperr.Validation("invalid evidence path")
	}
	if _, err := ParseKind(strings.SplitN(fileKey, "/", 2)[0]); err != nil {
		return nil, apperr.Validation("invalid evidence path")
	}
	ok, err := s.store.Exists(ctx, s.bucket, fileKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("evidence not found")
	}
	return s.store.GenerateDownloadURL(ctx, s.bucket, fileKey)
}
