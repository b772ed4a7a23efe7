package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tasky/internal/model"
)

// fakeTaskStore is an in-memory TaskStore for tests.
type fakeTaskStore struct {
	tasks   map[string]*model.Task
	seq     int
	listErr map[string]error // per-user ListActive failures
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:   make(map[string]*model.Task),
		listErr: make(map[string]error),
	}
}

func (f *fakeTaskStore) Create(ctx context.Context, task *model.Task) error {
	f.seq++
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", f.seq)
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	task.CreatedAt = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(f.seq) * time.Minute)
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTaskStore) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, model.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *model.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return model.ErrTaskNotFound
	}
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return model.ErrTaskNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskStore) ListActive(ctx context.Context, userID string) ([]model.Task, error) {
	if err := f.listErr[userID]; err != nil {
		return nil, err
	}
	var out []model.Task
	for _, task := range f.tasks {
		if task.UserID == userID && task.Status != model.StatusArchived {
			out = append(out, *task)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (f *fakeTaskStore) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var out []model.Task
	for _, task := range f.tasks {
		if task.UserID == userID {
			out = append(out, *task)
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

type fakeUserStore struct {
	users []model.User
}

func (f *fakeUserStore) ListAll(ctx context.Context) ([]model.User, error) {
	return f.users, nil
}

type fakeSender struct {
	sent map[string][]string // phone -> messages
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]string)}
}

func (f *fakeSender) SendText(ctx context.Context, phoneNumber, text string) error {
	f.sent[phoneNumber] = append(f.sent[phoneNumber], text)
	return nil
}
