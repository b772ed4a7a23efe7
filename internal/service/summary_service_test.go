package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tasky/internal/model"
)

var summaryNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newSummaryFixture(store *fakeTaskStore, users []model.User) (*SummaryService, *fakeSender) {
	sender := newFakeSender()
	svc := NewSummaryService(store, &fakeUserStore{users: users}, sender, time.UTC, zerolog.Nop())
	return svc, sender
}

func TestDailySummary_NothingScheduled(t *testing.T) {
	t.Parallel()

	svc, _ := newSummaryFixture(newFakeTaskStore(), nil)
	user := &model.User{ID: "u1", Username: "Alice", PhoneNumber: "111"}

	text, err := svc.DailySummary(context.Background(), user, summaryNow)
	if err != nil {
		t.Fatalf("DailySummary returned error: %v", err)
	}
	if !strings.Contains(text, "no tasks today") {
		t.Fatalf("expected nothing-scheduled message, got %q", text)
	}
	if !strings.Contains(text, "Alice") {
		t.Fatalf("expected greeting by name, got %q", text)
	}
}

func TestDailySummary_FlagsAndCounts(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	ctx := context.Background()

	overdue := summaryNow.Add(-24 * time.Hour)
	soon := summaryNow.Add(10 * time.Minute)

	if err := store.Create(ctx, &model.Task{
		UserID: "u1", Title: "pay rent", Priority: model.PriorityHigh, DueDt: &overdue,
	}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.Create(ctx, &model.Task{
		UserID: "u1", Title: "write report", Priority: model.PriorityMedium, DueDt: &soon, DurationMins: 45,
	}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	svc, _ := newSummaryFixture(store, nil)
	user := &model.User{ID: "u1", Username: "Alice", PhoneNumber: "111"}

	text, err := svc.DailySummary(ctx, user, summaryNow)
	if err != nil {
		t.Fatalf("DailySummary returned error: %v", err)
	}

	if !strings.Contains(text, "⚠️ pay rent") {
		t.Errorf("expected overdue icon on pay rent, got:\n%s", text)
	}
	if !strings.Contains(text, "⏳ write report") {
		t.Errorf("expected tight icon on write report, got:\n%s", text)
	}
	if !strings.Contains(text, "High: 1 · Medium: 1 · Low: 0") {
		t.Errorf("expected priority counts, got:\n%s", text)
	}
	if !strings.Contains(text, "Pending: 2") {
		t.Errorf("expected status counts, got:\n%s", text)
	}

	// Overdue high-priority task sorts first.
	if strings.Index(text, "pay rent") > strings.Index(text, "write report") {
		t.Errorf("expected high priority first:\n%s", text)
	}
}

func TestDailySummary_InvalidTaskExcluded(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	ctx := context.Background()

	due := summaryNow.Add(time.Hour)
	if err := store.Create(ctx, &model.Task{UserID: "u1", Title: "fine", Priority: model.PriorityMedium, DueDt: &due}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.Create(ctx, &model.Task{UserID: "u1", Title: "broken", Priority: 9, DueDt: &due}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	svc, _ := newSummaryFixture(store, nil)
	user := &model.User{ID: "u1", Username: "Alice", PhoneNumber: "111"}

	text, err := svc.DailySummary(ctx, user, summaryNow)
	if err != nil {
		t.Fatalf("DailySummary returned error: %v", err)
	}
	if strings.Contains(text, "broken") {
		t.Errorf("invalid task must be excluded from the summary:\n%s", text)
	}
	if !strings.Contains(text, "fine") {
		t.Errorf("valid task missing from the summary:\n%s", text)
	}
}

func TestSendDailyReports_OneUserFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	store.listErr["u1"] = errors.New("storage down")

	users := []model.User{
		{ID: "u1", Username: "Alice", PhoneNumber: "111"},
		{ID: "u2", Username: "Bob", PhoneNumber: "222"},
	}
	svc, sender := newSummaryFixture(store, users)

	if err := svc.SendDailyReports(context.Background(), summaryNow); err != nil {
		t.Fatalf("SendDailyReports returned error: %v", err)
	}

	if len(sender.sent["111"]) != 0 {
		t.Errorf("failed user must not receive a message")
	}
	if len(sender.sent["222"]) != 1 {
		t.Fatalf("healthy user must still receive a message, got %v", sender.sent)
	}
	if !strings.Contains(sender.sent["222"][0], "no tasks today") {
		t.Errorf("unexpected message for Bob: %q", sender.sent["222"][0])
	}
}
