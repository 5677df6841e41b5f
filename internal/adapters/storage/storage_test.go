package storage

import (
	"strings"
	"testing"

	"labor_pipeline_backend/platform/apperr"
)

func TestObjectKeySanitizesName(t *testing.T) {
	key := ObjectKey("/trainings/abc/", `C:\scans\Medical Report (final).PDF`)
	if !strings.HasPrefix(key, "trainings/abc/Medical_Report_final_") {
		t.Fatalf("unexpected key %q", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("expected lower-cased extension, got %q", key)
	}
}

func TestObjectKeyIsUnique(t *testing.T) {
	if ObjectKey("x", "a.png") == ObjectKey("x", "a.png") {
		t.Fatal("expected distinct keys for repeated uploads")
	}
	if key := ObjectKey("x", "???.png"); !strings.HasPrefix(key, "x/file_") {
		t.Fatalf("expected fallback base name, got %q", key)
	}
}

func TestValidateContentType(t *testing.T) {
	if err := ValidateContentType("application/pdf; charset=binary"); err != nil {
		t.Fatalf("expected pdf to be allowed: %v", err)
	}
	if err := ValidateContentType("application/x-msdownload"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(0, 100); err == nil {
		t.Fatal("expected empty file to be rejected")
	}
	if err := ValidateFileSize(101, 100); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
	if err := ValidateFileSize(100, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
