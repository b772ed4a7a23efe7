package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasky/internal/model"
	"tasky/internal/service"
)

// TaskOps is the slice of TaskService the dispatcher needs.
type TaskOps interface {
	Create(ctx context.Context, userID string, input service.TaskInput) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, patch service.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	List(ctx context.Context, userID string, filter service.TaskFilter) ([]model.Task, error)
}

// SummaryOps is the slice of SummaryService the dispatcher needs.
type SummaryOps interface {
	DailySummary(ctx context.Context, user *model.User, now time.Time) (string, error)
}

// Dispatcher executes classified tool calls against the task services and
// renders a user-facing reply.
type Dispatcher struct {
	tasks     TaskOps
	summaries SummaryOps
	loc       *time.Location
	log       zerolog.Logger
}

func NewDispatcher(tasks TaskOps, summaries SummaryOps, loc *time.Location, log zerolog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{tasks: tasks, summaries: summaries, loc: loc, log: log}
}

// Dispatch routes one tool call. Per-item failures are folded into the reply;
// only infrastructure failures surface as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, user *model.User, call ToolCall, now time.Time) (string, error) {
	if !call.Name.Valid() {
		return "", fmt.Errorf("%w: unknown tool %q", model.ErrInvalidInput, call.Name)
	}

	d.log.Debug().
		Str("user_id", user.ID).
		Str("tool", string(call.Name)).
		Msg("dispatching tool call")

	switch call.Name {
	case ToolNone:
		if call.Reply != "" {
			return call.Reply, nil
		}
		return "Sorry, I didn't catch that. You can ask me to create, update, list or delete tasks, or ask for your daily summary.", nil
	case ToolCreateTasks:
		return d.createTasks(ctx, user, call.Args)
	case ToolUpdateTasks:
		return d.updateTasks(ctx, user, call.Args)
	case ToolDeleteTasks:
		return d.deleteTasks(ctx, user, call.Args)
	case ToolGetTasks:
		return d.getTasks(ctx, user, call.Args)
	case ToolDailySummary:
		return d.summaries.DailySummary(ctx, user, now)
	}
	return "", fmt.Errorf("%w: unhandled tool %q", model.ErrInvalidInput, call.Name)
}

func (d *Dispatcher) createTasks(ctx context.Context, user *model.User, raw json.RawMessage) (string, error) {
	var args CreateTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("%w: create args: %v", model.ErrInvalidInput, err)
	}
	if len(args.Tasks) == 0 {
		return "", fmt.Errorf("%w: no tasks to create", model.ErrInvalidInput)
	}

	var created int
	var failures []string
	for _, arg := range args.Tasks {
		input, err := d.toInput(arg)
		if err == nil {
			_, err = d.tasks.Create(ctx, user.ID, input)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%q: %v", arg.Title, err))
			continue
		}
		created++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created %d task(s).", created)
	appendFailures(&b, failures)
	return b.String(), nil
}

func (d *Dispatcher) updateTasks(ctx context.Context, user *model.User, raw json.RawMessage) (string, error) {
	var args UpdateTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("%w: update args: %v", model.ErrInvalidInput, err)
	}
	if len(args.Tasks) == 0 {
		return "", fmt.Errorf("%w: no tasks to update", model.ErrInvalidInput)
	}

	var updated int
	var failures []string
	for _, arg := range args.Tasks {
		patch, err := d.toPatch(arg)
		if err == nil {
			_, err = d.tasks.Update(ctx, user.ID, arg.TaskID, patch)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", arg.TaskID, err))
			continue
		}
		updated++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Updated %d task(s).", updated)
	appendFailures(&b, failures)
	return b.String(), nil
}

func (d *Dispatcher) deleteTasks(ctx context.Context, user *model.User, raw json.RawMessage) (string, error) {
	var args DeleteTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("%w: delete args: %v", model.ErrInvalidInput, err)
	}
	if len(args.TaskIDs) == 0 {
		return "", fmt.Errorf("%w: no tasks to delete", model.ErrInvalidInput)
	}

	var deleted int
	var failures []string
	for _, id := range args.TaskIDs {
		if err := d.tasks.Delete(ctx, user.ID, id); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		deleted++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deleted %d task(s).", deleted)
	appendFailures(&b, failures)
	return b.String(), nil
}

func (d *Dispatcher) getTasks(ctx context.Context, user *model.User, raw json.RawMessage) (string, error) {
	var args GetTasksArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("%w: get args: %v", model.ErrInvalidInput, err)
		}
	}

	filter := service.TaskFilter{Tag: args.Tag, Location: d.loc}
	if args.Status != "" {
		status, err := model.ParseStatus(args.Status)
		if err != nil {
			return "", err
		}
		filter.Status = &status
	}
	if args.Priority != 0 {
		p := args.Priority
		filter.Priority = &p
	}
	var err error
	if filter.DueOn, err = parseOptionalDate(args.DueDt, d.loc); err != nil {
		return "", err
	}
	if filter.WorkingOn, err = parseOptionalDate(args.WorkingDt, d.loc); err != nil {
		return "", err
	}

	tasks, err := d.tasks.List(ctx, user.ID, filter)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "No matching tasks found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task(s):\n", len(tasks))
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. %s [P%d, %s]", i+1, task.Title, task.Priority, task.Status)
		if task.DueDt != nil {
			fmt.Fprintf(&b, " — due %s", task.DueDt.In(d.loc).Format("Mon 02 Jan 15:04"))
		}
		fmt.Fprintf(&b, "\n   id: %s\n", task.ID)
	}
	return strings.TrimSpace(b.String()), nil
}

func (d *Dispatcher) toInput(arg CreateTaskArg) (service.TaskInput, error) {
	input := service.TaskInput{
		Title:        arg.Title,
		Description:  arg.Description,
		DurationMins: arg.DurationMins,
		Priority:     arg.Priority,
		Tags:         arg.Tags,
	}
	if arg.Status != "" {
		status, err := model.ParseStatus(arg.Status)
		if err != nil {
			return input, err
		}
		input.Status = status
	}
	var err error
	if input.DueDt, err = parseOptionalDate(arg.DueDt, d.loc); err != nil {
		return input, err
	}
	if input.WorkingDt, err = parseOptionalDate(arg.WorkingDt, d.loc); err != nil {
		return input, err
	}
	return input, nil
}

func (d *Dispatcher) toPatch(arg UpdateTaskArg) (service.TaskPatch, error) {
	patch := service.TaskPatch{
		Title:        arg.Title,
		Description:  arg.Description,
		DurationMins: arg.DurationMins,
		Priority:     arg.Priority,
		Tags:         arg.Tags,
	}
	if arg.Status != nil {
		status, err := model.ParseStatus(*arg.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if arg.DueDt != nil {
		due, err := parseDate(*arg.DueDt, d.loc)
		if err != nil {
			return patch, err
		}
		patch.DueDt = &due
	}
	if arg.WorkingDt != nil {
		working, err := parseDate(*arg.WorkingDt, d.loc)
		if err != nil {
			return patch, err
		}
		patch.WorkingDt = &working
	}
	return patch, nil
}

func appendFailures(b *strings.Builder, failures []string) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%d failed:", len(failures))
	for _, f := range failures {
		fmt.Fprintf(b, "\n- %s", f)
	}
}
