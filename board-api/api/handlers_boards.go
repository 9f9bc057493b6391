package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/board-api/domain"
)

func createBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var board domain.Board
		err := timed(c, func(ctx context.Context) (err error) {
			board, err = store.CreateBoard(ctx)
			return err
		})
		if err != nil {
			return failStore(c, logger, "create_board", err, "Failed to create new board")
		}
		metricsFrom(c).SetTasksReturned(len(board.Tasks))
		return c.JSON(http.StatusCreated, board)
	}
}

func getBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		var board domain.Board
		err := timed(c, func(ctx context.Context) (err error) {
			board, err = store.GetBoard(ctx, id)
			return err
		})
		if errors.Is(err, domain.ErrBoardNotFound) {
			metricsFrom(c).SetErrorStage("not_found")
			return fail(c, http.StatusNotFound, "Board not found.")
		}
		if err != nil {
			return failStore(c, logger, "get_board", err, "Failed to fetch board.")
		}
		metricsFrom(c).SetTasksReturned(len(board.Tasks))
		return c.JSON(http.StatusOK, board)
	}
}

// updateBoard applies a partial update and answers with the refreshed board.
// A missing board is reported as a store failure, as every other write is.
func updateBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		var req boardUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return failValidation(c, err)
		}
		patch := req.BoardPatch
		if err := patch.Normalize(); err != nil {
			return failValidation(c, err)
		}

		var board domain.Board
		err := timed(c, func(ctx context.Context) (err error) {
			board, err = store.UpdateBoard(ctx, id, patch)
			return err
		})
		if err != nil {
			return failStore(c, logger, "update_board", err, "Failed to update board.")
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		err := timed(c, func(ctx context.Context) error {
			return store.DeleteBoard(ctx, id)
		})
		if err != nil {
			return failStore(c, logger, "delete_board", err, "Failed to delete board.")
		}
		return c.JSON(http.StatusOK, deleteBoardResponse{Success: true})
	}
}
