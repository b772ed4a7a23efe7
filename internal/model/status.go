package model

import "fmt"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// transitions lists the states reachable from each state. Completion is
// monotonic; archived is terminal and reachable from anywhere.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusArchived},
	StatusInProgress: {StatusCompleted, StatusArchived},
	StatusCompleted:  {StatusArchived},
	StatusArchived:   {},
}

// CanTransition reports whether a task may move from one status to another.
// The move is rejected with ErrInvalidTransition otherwise.
func CanTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, from, to)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, from, to)
}
