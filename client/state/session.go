// Package state keeps the board being viewed in sync with the API and applies
// the board and task form intents against it.
package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"taskboard/board-api/domain"
	"taskboard/client"
)

var errNoBoard = errors.New("no board loaded")

// State is a snapshot of the session.
type State struct {
	Board   *domain.Board
	Loading bool
	Error   string
}

// SortedTasks returns the board's tasks in display order.
func (s State) SortedTasks() []domain.Task {
	if s.Board == nil {
		return nil
	}
	return domain.SortForDisplay(s.Board.Tasks)
}

// Session holds the current board with its tasks. It never polls; the board
// changes only through Load and the intent methods.
type Session struct {
	client *client.Client

	mu      sync.Mutex
	board   *domain.Board
	loading bool
	err     string
}

func NewSession(c *client.Client) *Session {
	return &Session{client: c}
}

// Entry returns the board to open on startup: the remembered lastBoardId, or
// a freshly created board whose id is then remembered.
func Entry(ctx context.Context, c *client.Client) (string, error) {
	if id, ok, err := c.Store.Get(client.LastBoardIDKey); err != nil {
		return "", err
	} else if ok && id != "" {
		return id, nil
	}
	b, err := c.CreateBoard(ctx)
	if err != nil {
		return "", err
	}
	if err := c.Store.Set(client.LastBoardIDKey, b.ID); err != nil {
		return "", err
	}
	return b.ID, nil
}

// Load fetches the board and makes it current. On failure the board is
// cleared and the error message kept for display.
func (s *Session) Load(ctx context.Context, boardID string) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	b, err := s.client.FetchBoard(ctx, boardID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.board = nil
		s.err = errorMessage(err)
		return err
	}
	s.board = &b
	if b.ID != "" {
		if err := s.client.Store.Set(client.LastBoardIDKey, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Loading: s.loading, Error: s.err}
	if s.board != nil {
		b := s.board.Clone()
		st.Board = &b
	}
	return st
}

// UpdateBoard replaces the local board without refetching.
func (s *Session) UpdateBoard(b domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := b.Clone()
	s.board = &c
}

func (s *Session) current() (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return domain.Board{}, errNoBoard
	}
	return s.board.Clone(), nil
}

// RenameBoard saves a new name and description. Blank values keep the
// current ones, and nothing is sent when neither changes.
func (s *Session) RenameBoard(ctx context.Context, name, description string) error {
	b, err := s.current()
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = b.Name
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = b.Description
	}
	if name == b.Name && description == b.Description {
		return nil
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return &domain.ValidationError{Field: "name", Message: "Title should not exceed 50 characters."}
	}

	if _, err := s.client.UpdateBoard(ctx, b.ID, name, description); err != nil {
		return err
	}
	refreshed, err := s.client.FetchBoard(ctx, b.ID)
	if err != nil {
		return err
	}
	s.UpdateBoard(refreshed)
	return nil
}

// SaveTask updates taskID, or creates a task on the current board when taskID
// is empty, and patches the local task list with the result.
func (s *Session) SaveTask(ctx context.Context, taskID string, in client.TaskInput) (domain.Task, error) {
	b, err := s.current()
	if err != nil {
		return domain.Task{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return domain.Task{}, &domain.ValidationError{Field: "name", Message: "Task name is required"}
	}
	if utf8.RuneCountInString(in.Name) > domain.MaxNameLength {
		return domain.Task{}, &domain.ValidationError{Field: "name", Message: "Task name should not exceed 50 characters"}
	}
	if in.Icon == "" {
		in.Icon = domain.DefaultIcon
	}
	if in.Status == "" {
		in.Status = domain.StatusToDo
	}

	var saved domain.Task
	if taskID != "" {
		saved, err = s.client.UpdateTask(ctx, taskID, in)
	} else {
		saved, err = s.client.CreateTask(ctx, b.ID, in)
	}
	if err != nil {
		return domain.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil || s.board.ID != saved.BoardID {
		return saved, nil
	}
	for i := range s.board.Tasks {
		if s.board.Tasks[i].ID == saved.ID {
			s.board.Tasks[i] = saved
			return saved, nil
		}
	}
	s.board.Tasks = append(s.board.Tasks, saved)
	return saved, nil
}

// RemoveTask deletes the task and drops it from the local board.
func (s *Session) RemoveTask(ctx context.Context, taskID string) error {
	if err := s.client.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	kept := s.board.Tasks[:0]
	for _, t := range s.board.Tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	s.board.Tasks = kept
	return nil
}

// DeleteBoard deletes the current board and forgets lastBoardId.
func (s *Session) DeleteBoard(ctx context.Context) error {
	b, err := s.current()
	if err != nil {
		return err
	}
	if err := s.client.DeleteBoard(ctx, b.ID); err != nil {
		return err
	}
	if err := s.client.Store.Delete(client.LastBoardIDKey); err != nil {
		return err
	}
	s.mu.Lock()
	s.board = nil
	s.mu.Unlock()
	return nil
}

func errorMessage(err error) string {
	var ce *client.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
