package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"labor_pipeline_backend/internal/adapters/storage"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) UploadFile(_ context.Context, _, folder, fileName, _ string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := storage.ObjectKey(folder, fileName)
	m.objects[key] = data
	return key, nil
}

func (m *memStore) Exists(_ context.Context, _, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) GenerateDownloadURL(_ context.Context, bucket, key string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://files.example.com/" + bucket + "/" + key, FileKey: key, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func newTestService() (*Service, *memStore) {
	store := &memStore{objects: map[string][]byte{}}
	return New(store, "evidence", 1024, nil, nil), store
}

func TestUploadStoresUnderSubjectFolder(t *testing.T) {
	svc, store := newTestService()
	training := uuid.New()
	body := []byte("%PDF-1.7")

	stored, err := svc.Upload(context.Background(), UploadInput{
		Kind:        KindAssessment,
		SubjectID:   training,
		FileName:    "final exam.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(stored.Path, "assessments/"+training.String()+"/final_exam_") {
		t.Fatalf("unexpected path %q", stored.Path)
	}
	if !bytes.Equal(store.objects[stored.Path], body) {
		t.Fatal("stored bytes differ")
	}

	link, err := svc.DownloadURL(context.Background(), stored.Path)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	if link.FileKey != stored.Path {
		t.Fatalf("unexpected key %q", link.FileKey)
	}
}

func TestUploadRejectsDisallowedFiles(t *testing.T) {
	svc, store := newTestService()
	base := UploadInput{Kind: KindVisa, SubjectID: uuid.New(), FileName: "x.exe", Body: strings.NewReader("MZ")}

	in := base
	in.ContentType, in.Size = "application/x-msdownload", 2
	if _, err := svc.Upload(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected content type rejection, got %v", err)
	}
	in = base
	in.ContentType, in.Size = "image/png", 4096
	if _, err := svc.Upload(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected size rejection, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestDownloadURLRejectsTraversalAndMissing(t *testing.T) {
	svc, _ := newTestService()
	for _, p := range []string{"", "../secrets", "visa/../../etc/passwd", "other/file.pdf"} {
		if _, err := svc.DownloadURL(context.Background(), p); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("path %q: expected validation error, got %v", p, err)
		}
	}
	if _, err := svc.DownloadURL(context.Background(), "visa/"+uuid.New().String()+"/missing.pdf"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
