// Package planner turns a snapshot of one user's tasks into a deterministic
// daily plan. It performs no I/O and never mutates its input; the storage
// layer is responsible for handing it a point-in-time-consistent snapshot.
package planner

import (
	"fmt"
	"sort"
	"time"

	"tasky/internal/model"
)

// Flags marks schedule risks on a planned task.
type Flags struct {
	// AtRisk means the due date has already passed without completion.
	AtRisk bool
	// Tight means the remaining time until the due date is shorter than the
	// task's estimated duration.
	Tight bool
}

// Entry is one task in the ordered plan.
type Entry struct {
	Task  model.Task
	Flags Flags
}

// ExcludedTask records a task dropped from the plan because it violates a
// data invariant. The rest of the plan is unaffected.
type ExcludedTask struct {
	TaskID string
	Title  string
	Reason error
}

// Plan is the ordered daily plan for one user.
type Plan struct {
	// DayStart and DayEnd bound the target window in the resolved location.
	DayStart time.Time
	DayEnd   time.Time

	Entries  []Entry
	Excluded []ExcludedTask

	CountByPriority map[int]int
	CountByStatus   map[model.Status]int
}

// Empty reports whether nothing is scheduled. An empty plan is a valid
// result, not an error.
func (p Plan) Empty() bool {
	return len(p.Entries) == 0
}

// Options tunes the planning window.
type Options struct {
	// Location resolves "today". Defaults to UTC.
	Location *time.Location
	// Lookback and Lookahead widen the window by whole days around today.
	Lookback  int
	Lookahead int
}

// BuildPlan computes the daily plan for the given reference time and task
// snapshot. Archived tasks are ignored. Tasks violating an invariant are
// excluded individually; the call fails only on malformed options.
func BuildPlan(now time.Time, tasks []model.Task, opts Options) (Plan, error) {
	if opts.Lookback < 0 || opts.Lookahead < 0 {
		return Plan{}, fmt.Errorf("%w: negative plan window", model.ErrInvalidInput)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -opts.Lookback)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, 1+opts.Lookahead)

	plan := Plan{
		DayStart:        dayStart,
		DayEnd:          dayEnd,
		CountByPriority: make(map[int]int),
		CountByStatus:   make(map[model.Status]int),
	}

	for _, task := range tasks {
		if task.Status == model.StatusArchived {
			continue
		}
		if err := validate(task); err != nil {
			plan.Excluded = append(plan.Excluded, ExcludedTask{
				TaskID: task.ID,
				Title:  task.Title,
				Reason: err,
			})
			continue
		}
		if !relevant(task, now, dayStart, dayEnd) {
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			Task:  task,
			Flags: flag(task, now),
		})
	}

	sort.SliceStable(plan.Entries, func(i, j int) bool {
		return less(plan.Entries[i].Task, plan.Entries[j].Task)
	})

	for _, e := range plan.Entries {
		plan.CountByPriority[e.Task.Priority]++
		plan.CountByStatus[e.Task.Status]++
	}

	return plan, nil
}

func validate(task model.Task) error {
	if !model.ValidPriority(task.Priority) {
		return fmt.Errorf("%w: priority %d out of range", model.ErrInvalidInput, task.Priority)
	}
	if task.DurationMins < 0 {
		return fmt.Errorf("%w: negative duration %d", model.ErrInvalidInput, task.DurationMins)
	}
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, task.Status)
	}
	return nil
}

// relevant reports whether a task belongs in the window: scheduled or due
// within it, or still open with a due date already behind us (carry-over).
func relevant(task model.Task, now, dayStart, dayEnd time.Time) bool {
	if within(task.DueDt, dayStart, dayEnd) || within(task.WorkingDt, dayStart, dayEnd) {
		return true
	}
	open := task.Status == model.StatusPending || task.Status == model.StatusInProgress
	return open && task.DueDt != nil && task.DueDt.Before(now)
}

func within(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && t.Before(end)
}

func flag(task model.Task, now time.Time) Flags {
	var f Flags
	if task.DueDt == nil || task.Status == model.StatusCompleted {
		return f
	}
	if task.DueDt.Before(now) {
		f.AtRisk = true
		return f
	}
	remaining := task.DueDt.Sub(now)
	if remaining < time.Duration(task.DurationMins)*time.Minute {
		f.Tight = true
	}
	return f
}

// less is the total ordering of the plan: priority ascending, then due date
// ascending with nil due dates last, then creation time ascending.
func less(a, b model.Task) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	switch {
	case a.DueDt != nil && b.DueDt != nil:
		if !a.DueDt.Equal(*b.DueDt) {
			return a.DueDt.Before(*b.DueDt)
		}
	case a.DueDt != nil:
		return true
	case b.DueDt != nil:
		return false
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
