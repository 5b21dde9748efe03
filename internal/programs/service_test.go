package programs

import (
	"context"
	"errors"
	"testing"
)

func TestCreateProgramStartsInDraft(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	program, err := svc.Create(context.Background(), "  Arts Fund  ", " Supports local arts. ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if program.Status != StatusDraft {
		t.Fatalf("status = %q, want %q", program.Status, StatusDraft)
	}
	if program.Name != "Arts Fund" {
		t.Fatalf("name = %q, want trimmed", program.Name)
	}
	if program.Description != "Supports local arts." {
		t.Fatalf("description = %q, want trimmed", program.Description)
	}
	if program.ID == "" {
		t.Fatal("program must be assigned an id")
	}

	stored, err := svc.Get(context.Background(), program.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Name != program.Name {
		t.Fatalf("stored name = %q", stored.Name)
	}
}

func TestCreateProgramRequiresName(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if _, err := svc.Create(context.Background(), "   ", "desc"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGetUnknownProgram(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoWarningsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if err := repo.Create(ctx, Program{ID: "prog-1", Name: "Arts Fund", Status: StatusProcessing}); err != nil {
		t.Fatalf("create: %v", err)
	}

	w := Warning{Category: "application_form", Message: "a.txt: degraded", RequiresReview: true}
	if err := repo.AppendWarning(ctx, "prog-1", w); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendWarning(ctx, "prog-1", Warning{Category: "good_example", Message: "b.txt: degraded", RequiresReview: true}); err != nil {
		t.Fatalf("append: %v", err)
	}

	program, err := repo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(program.Warnings) != 2 {
		t.Fatalf("warnings = %d, want 2", len(program.Warnings))
	}

	// Mutating the returned slice must not affect stored state.
	program.Warnings[0].Message = "tampered"
	again, _ := repo.GetByID(ctx, "prog-1")
	if again.Warnings[0].Message != "a.txt: degraded" {
		t.Fatal("stored warnings were mutated through the returned slice")
	}

	if err := repo.ClearWarnings(ctx, "prog-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, _ := repo.GetByID(ctx, "prog-1")
	if len(cleared.Warnings) != 0 {
		t.Fatalf("warnings = %d after clear, want 0", len(cleared.Warnings))
	}
}
