package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultBoardName        = "My Task Board"
	DefaultBoardDescription = "Tasks to keep organized"
)

// Board is a named collection of tasks. Tasks are owned exclusively by their
// board and only reference it through Task.BoardID.
type Board struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Tasks       []Task    `json:"tasks" db:"-"`
}

// BoardPatch carries a partial board update.
type BoardPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Normalize validates the fields present in the patch.
func (p *BoardPatch) Normalize() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if utf8.RuneCountInString(name) > MaxNameLength {
			return &ValidationError{Field: "name", Message: "Title should not exceed 50 characters."}
		}
		p.Name = &name
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	return nil
}

// Apply merges the patch over b field by field.
func (p BoardPatch) Apply(b Board) Board {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	return b
}

// SeedTasks returns the starter tasks attached to every new board.
func SeedTasks(boardID string) []NewTask {
	return []NewTask{
		{Name: "Task In Progress", Status: StatusInProgress, Icon: IconClock, BoardID: boardID},
		{Name: "Task Completed", Status: StatusCompleted, Icon: IconRocket, BoardID: boardID},
		{Name: "Task Won't Do", Status: StatusWontDo, Icon: IconBlocked, BoardID: boardID},
	}
}

// Clone returns a copy of b that shares no task slice with it.
func (b Board) Clone() Board {
	if b.Tasks != nil {
		b.Tasks = append([]Task(nil), b.Tasks...)
	}
	return b
}
