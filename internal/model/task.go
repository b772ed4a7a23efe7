package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority levels. Lower is more urgent.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// Task represents a single item in the user's task list.
type Task struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	Title        string
	Description  string
	Status       Status `gorm:"default:pending;check:chk_tasks_status,status IN ('pending','in_progress','completed','archived')"`
	DueDt        *time.Time
	WorkingDt    *time.Time
	DurationMins int      `gorm:"default:0"`
	Priority     int      `gorm:"default:2;check:chk_tasks_priority,priority BETWEEN 1 AND 3"`
	Tags         []string `gorm:"serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == 0 {
		t.Priority = PriorityMedium
	}
	return nil
}

func ValidPriority(p int) bool {
	return p >= PriorityHigh && p <= PriorityLow
}
