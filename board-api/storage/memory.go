package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"taskboard/board-api/domain"
)

// Memory is a mutex-guarded in-process gateway used for local runs and tests.
type Memory struct {
	mu     sync.RWMutex
	boards map[string]domain.Board
	tasks  map[string]domain.Task
}

var _ Gateway = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		boards: make(map[string]domain.Board),
		tasks:  make(map[string]domain.Task),
	}
}

func (m *Memory) GetBoard(_ context.Context, id string) (domain.Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.boardWithTasksLocked(id)
}

func (m *Memory) CreateBoard(_ context.Context) (domain.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := newBoard(uuid.NewString())
	m.boards[b.ID] = b
	for _, seed := range domain.SeedTasks(b.ID) {
		if err := seed.Normalize(); err != nil {
			return domain.Board{}, fmt.Errorf("seed task: %w", err)
		}
		t := newTask(seed)
		m.tasks[t.ID] = t
	}
	return m.boardWithTasksLocked(b.ID)
}

func (m *Memory) UpdateBoard(_ context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.boards[id]
	if !ok {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	b = patch.Apply(b)
	b.UpdatedAt = after(b.UpdatedAt)
	m.boards[id] = b
	return m.boardWithTasksLocked(id)
}

func (m *Memory) DeleteBoard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[id]; !ok {
		return domain.ErrBoardNotFound
	}
	delete(m.boards, id)
	for tid, t := range m.tasks {
		if t.BoardID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *Memory) ListTasks(_ context.Context, boardID string) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := m.tasksLocked(boardID)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (m *Memory) GetTask(_ context.Context, id string) (domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}

func (m *Memory) CreateTask(_ context.Context, in domain.NewTask) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[in.BoardID]; !ok {
		return domain.Task{}, domain.ErrBoardNotFound
	}
	t := newTask(in)
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	t = patch.Apply(t)
	m.tasks[id] = t
	return t, nil
}

func (m *Memory) DeleteTask(_ context.Context, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return t, nil
}

func (m *Memory) boardWithTasksLocked(id string) (domain.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	tasks := m.tasksLocked(id)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	b.Tasks = tasks
	return b, nil
}

func (m *Memory) tasksLocked(boardID string) []domain.Task {
	tasks := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if boardID == "" || t.BoardID == boardID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
