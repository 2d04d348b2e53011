package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ellevenagent/project-dashboard/domain"
)

func strp(s string) *string { return &s }

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
}

func TestFileStoreInsertAssignsIDAndDefaults(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	task, created, err := fs.Upsert(ctx, domain.TaskPatch{Title: strp("first")})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Fatal("expected insert to report created")
	}
	if task.ID != 1 {
		t.Fatalf("expected id 1, got %d", task.ID)
	}
	if task.Column != domain.ColumnBacklog || task.Priority != domain.PriorityMedium {
		t.Fatalf("defaults not applied: %#v", task)
	}
	if task.CreatedAt != task.UpdatedAt || task.CreatedAt == 0 {
		t.Fatalf("expected createdAt == updatedAt != 0, got %d/%d", task.CreatedAt, task.UpdatedAt)
	}

	second, _, err := fs.Upsert(ctx, domain.TaskPatch{Title: strp("second")})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected id 2, got %d", second.ID)
	}

	tasks, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// File backend lists in insertion order, unlike postgres.
	if len(tasks) != 2 || tasks[0].Title != "first" || tasks[1].Title != "second" {
		t.Fatalf("unexpected list: %#v", tasks)
	}
}

func TestFileStorePartialUpdate(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	task, _, err := fs.Upsert(ctx, domain.TaskPatch{
		Title:    strp("write docs"),
		Assignee: strp("sam"),
		Priority: strp(domain.PriorityHigh),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, created, err := fs.Upsert(ctx, domain.TaskPatch{ID: task.ID, Column: strp(domain.ColumnDone)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if created {
		t.Fatal("update must not report created")
	}
	if updated.Column != domain.ColumnDone {
		t.Fatalf("column not updated: %q", updated.Column)
	}
	if updated.Title != "write docs" || updated.Assignee != "sam" || updated.Priority != domain.PriorityHigh {
		t.Fatalf("absent fields changed: %#v", updated)
	}
	if updated.CreatedAt != task.CreatedAt {
		t.Fatalf("createdAt changed: %d -> %d", task.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt <= task.UpdatedAt {
		t.Fatalf("updatedAt not strictly increased: %d -> %d", task.UpdatedAt, updated.UpdatedAt)
	}
}

func TestFileStoreUpdateMissingIDIsSuccess(t *testing.T) {
	// Deliberate leniency: a no-op update on a missing id is not an error,
	// mirroring idempotent delete.
	ctx := context.Background()
	fs := newTestFileStore(t)

	task, created, err := fs.Upsert(ctx, domain.TaskPatch{ID: 99, Title: strp("ghost")})
	if err != nil {
		t.Fatalf("expected success on missing id, got %v", err)
	}
	if created || task.ID != 0 {
		t.Fatalf("expected zero task and created=false, got %#v created=%v", task, created)
	}
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	task, _, err := fs.Upsert(ctx, domain.TaskPatch{Title: strp("temp")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := fs.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %#v", tasks)
	}
	// Deleting the same id again, or any id that never existed, still succeeds.
	if err := fs.Delete(ctx, task.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if err := fs.Delete(ctx, 12345); err != nil {
		t.Fatalf("delete unknown id: %v", err)
	}
}

func TestFileStoreIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")
	fs := NewFileStore(path)

	task, _, err := fs.Upsert(ctx, domain.TaskPatch{Title: strp("one")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := fs.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A fresh store over the same file simulates a restart.
	reopened := NewFileStore(path)
	next, _, err := reopened.Upsert(ctx, domain.TaskPatch{Title: strp("two")})
	if err != nil {
		t.Fatalf("insert after reopen: %v", err)
	}
	if next.ID <= task.ID {
		t.Fatalf("id reused: %d after deleting %d", next.ID, task.ID)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")
	fs := NewFileStore(path)

	want, _, err := fs.Upsert(ctx, domain.TaskPatch{
		Title:       strp("release"),
		Description: strp("cut v2"),
		Column:      strp(domain.ColumnProgress),
		Tag:         strp("infra"),
		Assignee:    strp("Clawd"),
		Priority:    strp(domain.PriorityHigh),
		Emoji:       strp("🚀"),
		DueDate:     strp("2026-09-01"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	tasks, err := NewFileStore(path).List(ctx)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0] != want {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", tasks[0], want)
	}
}

func TestFileStoreConcurrentDisjointUpdatesBothApply(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	task, _, err := fs.Upsert(ctx, domain.TaskPatch{Title: strp("shared")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, _ = fs.Upsert(ctx, domain.TaskPatch{ID: task.ID, Column: strp(domain.ColumnDone)})
	}()
	go func() {
		defer wg.Done()
		_, _, _ = fs.Upsert(ctx, domain.TaskPatch{ID: task.ID, Assignee: strp("sam")})
	}()
	wg.Wait()

	tasks, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Column != domain.ColumnDone || tasks[0].Assignee != "sam" {
		t.Fatalf("disjoint updates lost: %#v", tasks[0])
	}
}
