package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasky/internal/model"
	"tasky/internal/planner"
)

// UserStore lists the users eligible for daily reports.
type UserStore interface {
	ListAll(ctx context.Context) ([]model.User, error)
}

// Sender delivers a rendered summary to a user. The WhatsApp client
// satisfies it.
type Sender interface {
	SendText(ctx context.Context, phoneNumber, text string) error
}

const (
	iconDefault = "🟢"
	iconTight   = "⏳"
	iconAtRisk  = "⚠️"
)

// SummaryService turns task snapshots into daily summary messages.
type SummaryService struct {
	tasks  TaskStore
	users  UserStore
	sender Sender
	loc    *time.Location
	log    zerolog.Logger
}

func NewSummaryService(tasks TaskStore, users UserStore, sender Sender, loc *time.Location, log zerolog.Logger) *SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryService{tasks: tasks, users: users, sender: sender, loc: loc, log: log}
}

// DailySummary reads the user's task snapshot, runs the planner and renders
// the result as a chat message.
func (s *SummaryService) DailySummary(ctx context.Context, user *model.User, now time.Time) (string, error) {
	tasks, err := s.tasks.ListActive(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("load tasks: %w", err)
	}

	plan, err := planner.BuildPlan(now, tasks, planner.Options{Location: s.loc})
	if err != nil {
		return "", fmt.Errorf("build plan: %w", err)
	}

	for _, ex := range plan.Excluded {
		s.log.Warn().
			Str("user_id", user.ID).
			Str("task_id", ex.TaskID).
			Err(ex.Reason).
			Msg("task excluded from daily plan")
	}

	return renderPlan(user.Username, plan, now.In(s.loc)), nil
}

// SendDailyReports computes and delivers a summary for every user. A failure
// for one user is logged and never aborts the others.
func (s *SummaryService) SendDailyReports(ctx context.Context, now time.Time) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		user := &users[i]
		summary, err := s.DailySummary(ctx, user, now)
		if err != nil {
			s.log.Error().Str("user_id", user.ID).Err(err).Msg("daily summary failed")
			continue
		}
		if err := s.sender.SendText(ctx, user.PhoneNumber, summary); err != nil {
			s.log.Error().Str("user_id", user.ID).Err(err).Msg("daily summary send failed")
		}
	}
	return nil
}

func renderPlan(username string, plan planner.Plan, localNow time.Time) string {
	name := strings.TrimSpace(username)
	if name == "" {
		name = "there"
	}

	if plan.Empty() {
		return fmt.Sprintf("Hello %s, you have no tasks today. Enjoy! 🎉", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Daily plan — %s\n\n", localNow.Format("Monday, 02 Jan 2006"))

	for _, entry := range plan.Entries {
		b.WriteString(formatEntry(entry, localNow))
	}

	b.WriteByte('\n')
	fmt.Fprintf(&b, "High: %d · Medium: %d · Low: %d\n",
		plan.CountByPriority[model.PriorityHigh],
		plan.CountByPriority[model.PriorityMedium],
		plan.CountByPriority[model.PriorityLow])
	fmt.Fprintf(&b, "Pending: %d · In progress: %d · Completed: %d",
		plan.CountByStatus[model.StatusPending],
		plan.CountByStatus[model.StatusInProgress],
		plan.CountByStatus[model.StatusCompleted])

	return strings.TrimSpace(b.String())
}

func formatEntry(entry planner.Entry, localNow time.Time) string {
	task := entry.Task

	icon := iconDefault
	switch {
	case entry.Flags.AtRisk:
		icon = iconAtRisk
	case entry.Flags.Tight:
		icon = iconTight
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [P%d]", icon, strings.TrimSpace(task.Title), task.Priority)
	if task.DurationMins > 0 {
		fmt.Fprintf(&b, " · ~%d min", task.DurationMins)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(task.Tags, ", "))
	}

	if task.DueDt != nil {
		due := task.DueDt.In(localNow.Location())
		switch {
		case entry.Flags.AtRisk:
			fmt.Fprintf(&b, "\n   ⏰ due %s — overdue", due.Format("Mon 15:04"))
		case entry.Flags.Tight:
			fmt.Fprintf(&b, "\n   ⏰ due %s — tight window", due.Format("15:04"))
		default:
			fmt.Fprintf(&b, "\n   ⏰ due %s", due.Format("15:04"))
		}
	}

	b.WriteByte('\n')
	return b.String()
}
