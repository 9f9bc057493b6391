package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength bounds board and task names, counted in characters.
const MaxNameLength = 50

// Task represents a single card on a board.
type Task struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        Icon      `json:"icon" db:"icon"`
	Status      Status    `json:"status" db:"status"`
	BoardID     string    `json:"boardId" db:"board_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        Icon   `json:"icon"`
	Status      Status `json:"status"`
	BoardID     string `json:"boardId"`
}

// Normalize trims the input, fills in the form defaults and validates every
// field. A missing board ID is reported before anything else.
func (n *NewTask) Normalize() error {
	n.BoardID = strings.TrimSpace(n.BoardID)
	if n.BoardID == "" {
		return &ValidationError{Field: "boardId", Message: "Board ID is required"}
	}
	name, err := normalizeTaskName(n.Name)
	if err != nil {
		return err
	}
	n.Name = name
	n.Description = strings.TrimSpace(n.Description)

	if n.Icon == "" {
		n.Icon = DefaultIcon
	}
	icon, err := ParseIcon(string(n.Icon))
	if err != nil {
		return err
	}
	n.Icon = icon

	if n.Status == "" {
		n.Status = StatusToDo
	}
	status, err := ParseStatus(string(n.Status))
	if err != nil {
		return err
	}
	n.Status = status
	return nil
}

// TaskPatch carries a partial task update. Nil fields keep the stored value.
type TaskPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *Icon   `json:"icon,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Normalize validates the fields present in the patch.
func (p *TaskPatch) Normalize() error {
	if p.Name != nil {
		name, err := normalizeTaskName(*p.Name)
		if err != nil {
			return err
		}
		p.Name = &name
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	if p.Icon != nil {
		icon, err := ParseIcon(string(*p.Icon))
		if err != nil {
			return err
		}
		p.Icon = &icon
	}
	if p.Status != nil {
		status, err := ParseStatus(string(*p.Status))
		if err != nil {
			return err
		}
		p.Status = &status
	}
	return nil
}

// Apply merges the patch over t field by field.
func (p TaskPatch) Apply(t Task) Task {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Icon != nil {
		t.Icon = *p.Icon
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

func normalizeTaskName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: "Task name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &ValidationError{Field: "name", Message: "Task name should not exceed 50 characters"}
	}
	return name, nil
}
