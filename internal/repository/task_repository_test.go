package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"tasky/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, phone string) *model.User {
	t.Helper()

	user, err := NewUserRepository(db).UpsertFromPhone(context.Background(), phone, "Alice")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestUserRepositoryUpsertFromPhone(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromPhone(ctx, "15551234567", "Alice")
	if err != nil {
		t.Fatalf("UpsertFromPhone returned error: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated user id")
	}

	// Same phone updates the profile name instead of creating a new row.
	second, err := repo.UpsertFromPhone(ctx, "15551234567", "Alice B")
	if err != nil {
		t.Fatalf("UpsertFromPhone returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}

	users, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Username != "Alice B" {
		t.Fatalf("username not updated: %q", users[0].Username)
	}
}

func TestTaskRepositoryListActive_ExcludesArchived(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	user := seedUser(t, db, "111")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	due := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	open := model.Task{UserID: user.ID, Title: "open", DueDt: &due, Tags: []string{"work"}}
	archived := model.Task{UserID: user.ID, Title: "archived", Status: model.StatusArchived}

	if err := repo.Create(ctx, &open); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := repo.Create(ctx, &archived); err != nil {
		t.Fatalf("create task: %v", err)
	}

	active, err := repo.ListActive(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 1 || active[0].Title != "open" {
		t.Fatalf("expected only the open task, got %v", active)
	}
	if len(active[0].Tags) != 1 || active[0].Tags[0] != "work" {
		t.Fatalf("tags not round-tripped: %v", active[0].Tags)
	}

	all, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}
}

func TestTaskRepositoryFindAndDelete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	user := seedUser(t, db, "111")
	other := seedUser(t, db, "222")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	task := model.Task{UserID: user.ID, Title: "mine"}
	if err := repo.Create(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := repo.FindByID(ctx, other.ID, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("foreign task must be invisible, got %v", err)
	}

	found, err := repo.FindByID(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if found.Status != model.StatusPending {
		t.Fatalf("expected default pending status, got %q", found.Status)
	}

	if err := repo.Delete(ctx, other.ID, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("foreign delete must fail, got %v", err)
	}
	if err := repo.Delete(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(ctx, user.ID, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("double delete must fail, got %v", err)
	}
}

func TestTaskRepositoryUpdate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	user := seedUser(t, db, "111")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	task := model.Task{UserID: user.ID, Title: "before"}
	if err := repo.Create(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	task.Title = "after"
	task.Status = model.StatusInProgress
	if err := repo.Update(ctx, &task); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored, err := repo.FindByID(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if stored.Title != "after" || stored.Status != model.StatusInProgress {
		t.Fatalf("update not persisted: %+v", stored)
	}
}
