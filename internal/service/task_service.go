package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tasky/internal/model"
)

// TaskStore is the storage surface the services need. *repository.TaskRepository
// satisfies it.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, userID, taskID string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, taskID string) error
	ListActive(ctx context.Context, userID string) ([]model.Task, error)
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title        string
	Description  string
	Status       model.Status
	DueDt        *time.Time
	WorkingDt    *time.Time
	DurationMins int
	Priority     int
	Tags         []string
}

// TaskPatch updates only the fields that are set.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *model.Status
	DueDt        *time.Time
	WorkingDt    *time.Time
	DurationMins *int
	Priority     *int
	Tags         []string
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.DueDt == nil && p.WorkingDt == nil && p.DurationMins == nil &&
		p.Priority == nil && p.Tags == nil
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status   *model.Status
	Priority *int
	Tag      string
	// DueOn and WorkingOn match the calendar day in the given location.
	DueOn     *time.Time
	WorkingOn *time.Time
	Location  *time.Location
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks TaskStore
}

func NewTaskService(tasks TaskStore) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}

	status := input.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}

	priority := input.Priority
	if priority == 0 {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: priority %d out of range", model.ErrInvalidInput, priority)
	}
	if input.DurationMins < 0 {
		return nil, fmt.Errorf("%w: negative duration %d", model.ErrInvalidInput, input.DurationMins)
	}

	task := model.Task{
		UserID:       userID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       status,
		DueDt:        input.DueDt,
		WorkingDt:    input.WorkingDt,
		DurationMins: input.DurationMins,
		Priority:     priority,
		Tags:         normalizeTags(input.Tags),
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies a patch to an existing task. A status change is validated
// against the transition rules and rejected, not silently applied.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, patch TaskPatch) (*model.Task, error) {
	if patch.empty() {
		return nil, fmt.Errorf("%w: no fields to update", model.ErrInvalidInput)
	}

	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != task.Status {
		if err := model.CanTransition(task.Status, *patch.Status); err != nil {
			return nil, err
		}
		task.Status = *patch.Status
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", model.ErrInvalidInput)
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDt != nil {
		task.DueDt = patch.DueDt
	}
	if patch.WorkingDt != nil {
		task.WorkingDt = patch.WorkingDt
	}
	if patch.DurationMins != nil {
		if *patch.DurationMins < 0 {
			return nil, fmt.Errorf("%w: negative duration %d", model.ErrInvalidInput, *patch.DurationMins)
		}
		task.DurationMins = *patch.DurationMins
	}
	if patch.Priority != nil {
		if !model.ValidPriority(*patch.Priority) {
			return nil, fmt.Errorf("%w: priority %d out of range", model.ErrInvalidInput, *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		task.Tags = normalizeTags(patch.Tags)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	return s.tasks.Delete(ctx, userID, taskID)
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.tasks.FindByID(ctx, userID, taskID)
}

// List returns the user's tasks matching the filter. Archived tasks only show
// up when explicitly asked for.
func (s *TaskService) List(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, *filter.Status)
	}
	if filter.Priority != nil && !model.ValidPriority(*filter.Priority) {
		return nil, fmt.Errorf("%w: priority %d out of range", model.ErrInvalidInput, *filter.Priority)
	}

	var (
		tasks []model.Task
		err   error
	)
	if filter.Status != nil && *filter.Status == model.StatusArchived {
		tasks, err = s.tasks.ListByUser(ctx, userID)
	} else {
		tasks, err = s.tasks.ListActive(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	loc := filter.Location
	if loc == nil {
		loc = time.UTC
	}

	matched := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if filter.Tag != "" && !hasTag(task, filter.Tag) {
			continue
		}
		if filter.DueOn != nil && !sameDay(task.DueDt, *filter.DueOn, loc) {
			continue
		}
		if filter.WorkingOn != nil && !sameDay(task.WorkingDt, *filter.WorkingOn, loc) {
			continue
		}
		matched = append(matched, task)
	}
	return matched, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func hasTag(task model.Task, tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range task.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sameDay(t *time.Time, day time.Time, loc *time.Location) bool {
	if t == nil {
		return false
	}
	a := t.In(loc)
	b := day.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
