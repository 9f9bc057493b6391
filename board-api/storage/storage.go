// Package storage implements the board persistence gateway on PostgreSQL,
// Azure Table Storage and process memory, plus a Redis read cache.
package storage

import (
	"context"

	"github.com/google/uuid"

	"taskboard/board-api/domain"
)

// Gateway translates board and task operations into store queries. Every
// method is a self-contained transaction.
type Gateway interface {
	GetBoard(ctx context.Context, id string) (domain.Board, error)
	CreateBoard(ctx context.Context) (domain.Board, error)
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error)
	DeleteBoard(ctx context.Context, id string) error

	// ListTasks returns tasks newest first. An empty boardID lists every task.
	ListTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	// DeleteTask removes the task and returns the deleted row.
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
}

// Store drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverTables   = "tables"
	DriverMemory   = "memory"
)

// validID reports whether id can name a stored row. Rows are keyed by UUID, so
// anything else cannot exist and is answered as not found without a query.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newBoard(id string) domain.Board {
	now := nextTimestamp()
	return domain.Board{
		ID:          id,
		Name:        domain.DefaultBoardName,
		Description: domain.DefaultBoardDescription,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newTask(in domain.NewTask) domain.Task {
	return domain.Task{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
		Status:      in.Status,
		BoardID:     in.BoardID,
		CreatedAt:   nextTimestamp(),
	}
}
