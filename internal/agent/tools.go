// Package agent maps classified user intent onto a closed, statically typed
// set of tool calls. There is no dynamic tool dispatch: the classifier picks
// a ToolName and the dispatcher routes it to a concrete service method.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tasky/internal/model"
)

// ToolName enumerates every action the bot can take.
type ToolName string

const (
	ToolCreateTasks  ToolName = "create_tasks"
	ToolUpdateTasks  ToolName = "update_tasks"
	ToolDeleteTasks  ToolName = "delete_tasks"
	ToolGetTasks     ToolName = "get_tasks"
	ToolDailySummary ToolName = "daily_summary"
	// ToolNone means no tool applies; the classifier's reply is sent as-is.
	ToolNone ToolName = "none"
)

func (n ToolName) Valid() bool {
	switch n {
	case ToolCreateTasks, ToolUpdateTasks, ToolDeleteTasks, ToolGetTasks, ToolDailySummary, ToolNone:
		return true
	}
	return false
}

// ToolCall is the classifier's verdict for one incoming message.
type ToolCall struct {
	Name ToolName        `json:"tool"`
	Args json.RawMessage `json:"args"`
	// Reply is conversational text accompanying (or replacing) the call.
	Reply string `json:"reply"`
}

// ClassifyRequest carries the context the classifier needs.
type ClassifyRequest struct {
	Message  string
	Username string
	Now      time.Time
}

// Classifier is the only LLM touchpoint of the bot.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ToolCall, error)
}

// CreateTaskArg mirrors the wire shape of one task in a create call. Dates
// are strings in "2006-01-02" or "2006-01-02 15:04:05" form.
type CreateTaskArg struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	DueDt        string   `json:"due_dt,omitempty"`
	WorkingDt    string   `json:"working_dt,omitempty"`
	DurationMins int      `json:"duration_mins,omitempty"`
	Priority     int      `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

type CreateTasksArgs struct {
	Tasks []CreateTaskArg `json:"tasks"`
}

type UpdateTaskArg struct {
	TaskID       string   `json:"task_id"`
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Status       *string  `json:"status,omitempty"`
	DueDt        *string  `json:"due_dt,omitempty"`
	WorkingDt    *string  `json:"working_dt,omitempty"`
	DurationMins *int     `json:"duration_mins,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

type UpdateTasksArgs struct {
	Tasks []UpdateTaskArg `json:"tasks"`
}

type DeleteTasksArgs struct {
	TaskIDs []string `json:"task_ids"`
}

type GetTasksArgs struct {
	Status    string `json:"status,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	Tag       string `json:"tag,omitempty"`
	DueDt     string `json:"due_dt,omitempty"`
	WorkingDt string `json:"working_dt,omitempty"`
}

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// parseDate accepts a date with or without a time component.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD or YYYY-MM-DD HH:MM:SS",
		model.ErrInvalidInput, raw)
}

func parseOptionalDate(raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
