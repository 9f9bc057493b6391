package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/board-api/domain"
)

func listTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		boardID := strings.TrimSpace(c.QueryParam("boardId"))
		var tasks []domain.Task
		err := timed(c, func(ctx context.Context) (err error) {
			tasks, err = store.ListTasks(ctx, boardID)
			return err
		})
		if err != nil {
			return failStore(c, logger, "list_tasks", err, "Failed to fetch tasks")
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		metricsFrom(c).SetTasksReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewTask
		if err := decodeBody(c, &in); err != nil {
			return failValidation(c, err)
		}
		if err := in.Normalize(); err != nil {
			return failValidation(c, err)
		}

		var task domain.Task
		err := timed(c, func(ctx context.Context) (err error) {
			task, err = store.CreateTask(ctx, in)
			return err
		})
		if errors.Is(err, domain.ErrBoardNotFound) {
			metricsFrom(c).SetErrorStage("validation")
			return fail(c, http.StatusBadRequest, "Board does not exist")
		}
		if err != nil {
			return failStore(c, logger, "create_task", err, "Failed to create task")
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func getTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		var task domain.Task
		err := timed(c, func(ctx context.Context) (err error) {
			task, err = store.GetTask(ctx, id)
			return err
		})
		if errors.Is(err, domain.ErrTaskNotFound) {
			metricsFrom(c).SetErrorStage("not_found")
			return fail(c, http.StatusNotFound, "Task not found.")
		}
		if err != nil {
			return failStore(c, logger, "get_task", err, "Failed to fetch task.")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		var req taskUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return failValidation(c, err)
		}
		patch := req.TaskPatch
		if err := patch.Normalize(); err != nil {
			return failValidation(c, err)
		}

		var task domain.Task
		err := timed(c, func(ctx context.Context) (err error) {
			task, err = store.UpdateTask(ctx, id, patch)
			return err
		})
		if err != nil {
			return failStore(c, logger, "update_task", err, "Failed to update task.")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		err := timed(c, func(ctx context.Context) error {
			_, err := store.DeleteTask(ctx, id)
			return err
		})
		if err != nil {
			return failStore(c, logger, "delete_task", err, "Failed to delete task.")
		}
		return c.JSON(http.StatusOK, deleteTaskResponse{Message: "Task deleted successfully."})
	}
}
