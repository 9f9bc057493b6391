package client

import (
	"context"
	"net/http"
	"net/url"

	"taskboard/board-api/domain"
)

// CreateBoard creates a board with its seeded tasks.
func (c *Client) CreateBoard(ctx context.Context) (domain.Board, error) {
	var b domain.Board
	err := c.do(ctx, http.MethodPost, "/boards", nil, &b, message("Failed to create new board"))
	return b, err
}

// FetchBoard loads a board with its tasks. A 404 also forgets the stored
// lastBoardId, since that board can no longer be opened.
func (c *Client) FetchBoard(ctx context.Context, boardID string) (domain.Board, error) {
	var b domain.Board
	err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID), nil, &b, func(status int) string {
		if status == http.StatusNotFound {
			if c.Store != nil {
				_ = c.Store.Delete(LastBoardIDKey)
			}
			return "Board has been Deleted / Incorrect Board ID"
		}
		return "Failed to fetch board data."
	})
	return b, err
}

type boardUpdate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateBoard replaces the board's name and description.
func (c *Client) UpdateBoard(ctx context.Context, boardID, name, description string) (domain.Board, error) {
	var b domain.Board
	body := boardUpdate{Name: name, Description: description}
	err := c.do(ctx, http.MethodPut, "/boards/"+url.PathEscape(boardID), body, &b, message("Failed to update board."))
	return b, err
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+url.PathEscape(boardID), nil, nil, message("Failed to delete board."))
}
