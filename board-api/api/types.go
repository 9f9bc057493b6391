package api

import (
	"context"

	"taskboard/board-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	GetBoard(ctx context.Context, id string) (domain.Board, error)
	CreateBoard(ctx context.Context) (domain.Board, error)
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error)
	DeleteBoard(ctx context.Context, id string) error

	ListTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

type deleteBoardResponse struct {
	Success bool `json:"success"`
}

type deleteTaskResponse struct {
	Message string `json:"message"`
}

// taskUpdateRequest also accepts the read-only keys of a Task so a client can
// send back the object it fetched. Those keys are decoded and dropped.
type taskUpdateRequest struct {
	domain.TaskPatch
	ID        any `json:"id,omitempty"`
	BoardID   any `json:"boardId,omitempty"`
	CreatedAt any `json:"createdAt,omitempty"`
}

// boardUpdateRequest does the same for a Board.
type boardUpdateRequest struct {
	domain.BoardPatch
	ID        any `json:"id,omitempty"`
	CreatedAt any `json:"createdAt,omitempty"`
	UpdatedAt any `json:"updatedAt,omitempty"`
	Tasks     any `json:"tasks,omitempty"`
}
