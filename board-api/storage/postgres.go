package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"taskboard/board-api/domain"
)

const (
	boardColumns = `id, name, description, created_at, updated_at`
	taskColumns  = `id, board_id, name, description, icon, status, created_at`

	pqForeignKeyViolation = "23503"
)

// Postgres implements Gateway on a relational schema where tasks reference
// boards with ON DELETE CASCADE.
type Postgres struct {
	DB *sqlx.DB
}

var _ Gateway = (*Postgres)(nil)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	if !validID(id) {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	var board domain.Board
	err := p.DB.GetContext(ctx, &board, `SELECT `+boardColumns+` FROM boards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, domain.ErrBoardNotFound
		}
		return domain.Board{}, fmt.Errorf("get board: %w", err)
	}
	if board.Tasks, err = p.boardTasks(ctx, p.DB, id); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

func (p *Postgres) CreateBoard(ctx context.Context) (domain.Board, error) {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Board{}, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	b := newBoard(uuid.NewString())
	qBoard := `INSERT INTO boards (` + boardColumns + `) VALUES ($1, $2, $3, $4, $5) RETURNING ` + boardColumns
	if err := tx.QueryRowxContext(ctx, qBoard, b.ID, b.Name, b.Description, b.CreatedAt, b.UpdatedAt).StructScan(&b); err != nil {
		return domain.Board{}, fmt.Errorf("failed to create board: %w", err)
	}

	b.Tasks = make([]domain.Task, 0, 3)
	for _, seed := range domain.SeedTasks(b.ID) {
		if err := seed.Normalize(); err != nil {
			return domain.Board{}, fmt.Errorf("seed task: %w", err)
		}
		t, err := insertTask(ctx, tx, newTask(seed))
		if err != nil {
			return domain.Board{}, fmt.Errorf("failed to create seed task: %w", err)
		}
		b.Tasks = append(b.Tasks, t)
	}

	if err := tx.Commit(); err != nil {
		return domain.Board{}, fmt.Errorf("transaction commit failed: %w", err)
	}
	return b, nil
}

func (p *Postgres) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	if !validID(id) {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	q := `UPDATE boards
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			updated_at = GREATEST($4, updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING ` + boardColumns
	var board domain.Board
	err := p.DB.QueryRowxContext(ctx, q, id, optString(patch.Name), optString(patch.Description), nextTimestamp()).StructScan(&board)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, domain.ErrBoardNotFound
		}
		return domain.Board{}, fmt.Errorf("update board: %w", err)
	}
	if board.Tasks, err = p.boardTasks(ctx, p.DB, id); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

func (p *Postgres) DeleteBoard(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrBoardNotFound
	}
	result, err := p.DB.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrBoardNotFound
	}
	return nil
}

func (p *Postgres) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	var err error
	switch {
	case boardID == "":
		err = p.DB.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	case !validID(boardID):
		return tasks, nil
	default:
		err = p.DB.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 ORDER BY created_at DESC`, boardID)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (p *Postgres) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if !validID(id) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	var t domain.Task
	if err := p.DB.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	if !validID(in.BoardID) {
		return domain.Task{}, domain.ErrBoardNotFound
	}
	t, err := insertTask(ctx, p.DB, newTask(in))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return domain.Task{}, domain.ErrBoardNotFound
		}
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (p *Postgres) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if !validID(id) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	q := `UPDATE tasks
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			icon = COALESCE($4, icon),
			status = COALESCE($5, status)
		WHERE id = $1
		RETURNING ` + taskColumns
	var icon, status *string
	if patch.Icon != nil {
		s := string(*patch.Icon)
		icon = &s
	}
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	var t domain.Task
	err := p.DB.QueryRowxContext(ctx, q, id, optString(patch.Name), optString(patch.Description), optString(icon), optString(status)).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (p *Postgres) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	if !validID(id) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	var t domain.Task
	err := p.DB.QueryRowxContext(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("delete task: %w", err)
	}
	return t, nil
}

func (p *Postgres) boardTasks(ctx context.Context, q sqlx.QueryerContext, boardID string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	if err := sqlx.SelectContext(ctx, q, &tasks, `SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 ORDER BY created_at`, boardID); err != nil {
		return nil, fmt.Errorf("list board tasks: %w", err)
	}
	return tasks, nil
}

func insertTask(ctx context.Context, q sqlx.QueryerContext, t domain.Task) (domain.Task, error) {
	qTask := `INSERT INTO tasks (` + taskColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + taskColumns
	var out domain.Task
	err := q.QueryRowxContext(ctx, qTask, t.ID, t.BoardID, t.Name, t.Description, string(t.Icon), string(t.Status), t.CreatedAt).StructScan(&out)
	return out, err
}

// optString turns an absent patch field into SQL NULL so COALESCE keeps the
// stored value.
func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
