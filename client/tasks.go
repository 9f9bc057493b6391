package client

import (
	"context"
	"net/http"
	"net/url"

	"taskboard/board-api/domain"
)

// TaskInput is the editable part of a task as submitted by the task form.
type TaskInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        domain.Icon   `json:"icon"`
	Status      domain.Status `json:"status"`
}

type newTaskRequest struct {
	TaskInput
	BoardID string `json:"boardId"`
}

// FetchTasks lists a board's tasks, newest first.
func (c *Client) FetchTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	var tasks []domain.Task
	path := "/tasks?boardId=" + url.QueryEscape(boardID)
	err := c.do(ctx, http.MethodGet, path, nil, &tasks, message("Failed to fetch tasks."))
	return tasks, err
}

func (c *Client) FetchTask(ctx context.Context, taskID string) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &t, func(status int) string {
		if status == http.StatusNotFound {
			return "Task not found"
		}
		return "Failed to fetch task data."
	})
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, boardID string, in TaskInput) (domain.Task, error) {
	var t domain.Task
	body := newTaskRequest{TaskInput: in, BoardID: boardID}
	err := c.do(ctx, http.MethodPost, "/tasks", body, &t, message("Failed to create task."))
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, in TaskInput) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), in, &t, message("Failed to update task."))
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil, nil, message("Failed to delete task."))
}
