package documents

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/storage/object/local"
)

func setupDocService(t *testing.T) *Service {
	t.Helper()
	programRepo := programs.NewMemoryRepo()
	if err := programRepo.Create(context.Background(), programs.Program{ID: "prog-1", Name: "Arts Fund", Status: programs.StatusDraft}); err != nil {
		t.Fatalf("create program: %v", err)
	}
	return &Service{
		Store:       local.New(t.TempDir()),
		Repo:        NewMemoryRepo(),
		ProgramRepo: programRepo,
	}
}

func TestUploadStoresAndRecordsDocument(t *testing.T) {
	svc := setupDocService(t)

	doc, err := svc.Upload(context.Background(), "prog-1", "application.txt", CategoryApplicationForm, bytes.NewReader([]byte("application body")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.ID == "" || doc.StorageKey == "" {
		t.Fatalf("incomplete document: %+v", doc)
	}
	if doc.SizeBytes != int64(len("application body")) {
		t.Fatalf("sizeBytes = %d", doc.SizeBytes)
	}
	if doc.Category != CategoryApplicationForm {
		t.Fatalf("category = %q", doc.Category)
	}

	stored, err := svc.Get(context.Background(), "prog-1", doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.FileName != "application.txt" {
		t.Fatalf("fileName = %q", stored.FileName)
	}

	body, err := svc.Store.Open(context.Background(), doc.StorageKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer body.Close()
}

func TestUploadRejectsUnknownCategory(t *testing.T) {
	svc := setupDocService(t)
	_, err := svc.Upload(context.Background(), "prog-1", "file.txt", "resume", bytes.NewReader(nil))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUploadRejectsUnknownProgram(t *testing.T) {
	svc := setupDocService(t)
	_, err := svc.Upload(context.Background(), "missing", "file.txt", CategoryGoodExample, bytes.NewReader(nil))
	if !errors.Is(err, programs.ErrNotFound) {
		t.Fatalf("err = %v, want programs.ErrNotFound", err)
	}
}

func TestGetScopesDocumentToProgram(t *testing.T) {
	svc := setupDocService(t)
	if err := svc.ProgramRepo.(*programs.MemoryRepo).Create(context.Background(), programs.Program{ID: "prog-2", Name: "Other"}); err != nil {
		t.Fatalf("create program: %v", err)
	}

	doc, err := svc.Upload(context.Background(), "prog-1", "file.txt", CategoryOutputTemplate, bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := svc.Get(context.Background(), "prog-2", doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for wrong program", err)
	}
}

func TestValidCategory(t *testing.T) {
	for _, category := range []string{CategoryApplicationForm, CategorySelectionCriteria, CategoryGoodExample, CategoryOutputTemplate} {
		if !ValidCategory(category) {
			t.Errorf("ValidCategory(%q) = false", category)
		}
	}
	if ValidCategory("resume") {
		t.Error("ValidCategory(resume) = true, want false")
	}
}
