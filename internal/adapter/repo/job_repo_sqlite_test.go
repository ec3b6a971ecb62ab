package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fileconverter/internal/domain"
)

func openTestStore(t *testing.T) *JobRepositorySQLite {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestJob(id string) *domain.Job {
	return &domain.Job{
		ID:           id,
		OriginalName: "report.docx",
		StoredName:   id + ".docx",
		Size:         42,
		Category:     domain.CategoryDocument,
		InputFormat:  "DOCX",
		OutputFormat: "PDF",
		Status:       domain.StatusPending,
		Progress:     0,
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.OriginalName != "report.docx" || job.Status != domain.StatusPending || job.Progress != 0 {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestListMostRecentFirst(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, newTestJob(id)); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}
	if jobs[0].ID != "c" || jobs[1].ID != "b" {
		t.Errorf("order = [%s %s], want [c b]", jobs[0].ID, jobs[1].ID)
	}
}

func TestClaimPendingJob(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	claimed, job, err := store.Claim(ctx, "job-1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}
	if job.Status != domain.StatusConverting || job.Progress != 5 {
		t.Errorf("claimed job = %s/%d, want converting/5", job.Status, job.Progress)
	}
}

func TestClaimIsSingleWinner(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	claimed, _, err := store.Claim(ctx, "job-1")
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	claimed, job, err := store.Claim(ctx, "job-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Error("second claim also won")
	}
	if job.Status != domain.StatusConverting {
		t.Errorf("status = %s, want converting", job.Status)
	}
}

func TestClaimCompletedIsNoOp(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	completed := domain.StatusCompleted
	progress := 100
	output := "job-1.pdf"
	if _, err := store.Update(ctx, "job-1", domain.JobPatch{
		Status:     &completed,
		Progress:   &progress,
		OutputName: &output,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	claimed, job, err := store.Claim(ctx, "job-1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed {
		t.Error("claim on completed job won")
	}
	if job.Status != domain.StatusCompleted || job.Progress != 100 {
		t.Errorf("completed job mutated: %s/%d", job.Status, job.Progress)
	}
}

func TestClaimFailedJobResetsAttemptState(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	failed := domain.StatusFailed
	progress := 0
	msg := "soffice exploded"
	if _, err := store.Update(ctx, "job-1", domain.JobPatch{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	claimed, job, err := store.Claim(ctx, "job-1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("retry claim on failed job should win")
	}
	if job.Status != domain.StatusConverting || job.Progress != 5 {
		t.Errorf("retried job = %s/%d, want converting/5", job.Status, job.Progress)
	}
	if job.ErrorMessage != "" {
		t.Errorf("error message not cleared: %q", job.ErrorMessage)
	}
}

func TestClaimUnknownReturnsNotFound(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, _, err := store.Claim(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Claim(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdatePatchesOnlyGivenFields(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	progress := 60
	job, err := store.Update(ctx, "job-1", domain.JobPatch{Progress: &progress})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if job.Progress != 60 {
		t.Errorf("progress = %d, want 60", job.Progress)
	}
	if job.Status != domain.StatusPending {
		t.Errorf("status changed unexpectedly: %s", job.Status)
	}
	if job.OriginalName != "report.docx" {
		t.Errorf("unrelated field changed: %q", job.OriginalName)
	}
}
