package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"taskboard/board-api/domain"
)

const (
	boardPartition = "board"
	edmInt64       = "Edm.Int64"
	// Entity group transactions accept at most 100 operations.
	maxBatchSize = 100
)

// Tables implements Gateway on Azure Table Storage. Boards live in a single
// partition of the boards table; tasks are partitioned by board ID so a board's
// tasks can be listed and batch-deleted together.
type Tables struct {
	boardTable *aztables.Client
	taskTable  *aztables.Client
}

var _ Gateway = (*Tables)(nil)

// NewTables creates a Tables gateway from the given connection string.
func NewTables(connStr, boardsTable, tasksTable string) (*Tables, error) {
	return newTables(connStr, boardsTable, tasksTable, nil)
}

// newTables builds the gateway over transport; nil uses the SDK's HTTP client.
func newTables(connStr, boardsTable, tasksTable string, transport policy.Transporter) (*Tables, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: transport,
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Tables{boardTable: svc.NewClient(boardsTable), taskTable: svc.NewClient(tasksTable)}, nil
}

// CreateTables creates the named tables, ignoring ones that already exist.
func CreateTables(ctx context.Context, connStr string, names ...string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return fmt.Errorf("create table %s: %w", name, err)
			}
		}
	}
	return nil
}

// tableKeys carries the row identity written with every entity. The service
// maintains Timestamp itself, so aztables.Entity is not used for writes.
type tableKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type boardEntity struct {
	tableKeys
	Name          string `json:"Name"`
	Description   string `json:"Description"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
	UpdatedAt     int64  `json:"UpdatedAt,string"`
	UpdatedAtType string `json:"UpdatedAt@odata.type"`
}

type taskEntity struct {
	tableKeys
	Name          string `json:"Name"`
	Description   string `json:"Description"`
	Icon          string `json:"Icon"`
	Status        string `json:"Status"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

func encodeBoard(b domain.Board) ([]byte, error) {
	return json.Marshal(boardEntity{
		tableKeys:     tableKeys{PartitionKey: boardPartition, RowKey: b.ID},
		Name:          b.Name,
		Description:   b.Description,
		CreatedAt:     b.CreatedAt.UnixMicro(),
		CreatedAtType: edmInt64,
		UpdatedAt:     b.UpdatedAt.UnixMicro(),
		UpdatedAtType: edmInt64,
	})
}

func decodeBoard(data []byte) (domain.Board, error) {
	var ent boardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Board{}, err
	}
	return domain.Board{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Description: ent.Description,
		CreatedAt:   time.UnixMicro(ent.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMicro(ent.UpdatedAt).UTC(),
	}, nil
}

func encodeTask(t domain.Task) ([]byte, error) {
	return json.Marshal(taskEntity{
		tableKeys:     tableKeys{PartitionKey: t.BoardID, RowKey: t.ID},
		Name:          t.Name,
		Description:   t.Description,
		Icon:          string(t.Icon),
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt.UnixMicro(),
		CreatedAtType: edmInt64,
	})
}

func decodeTask(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Description: ent.Description,
		Icon:        domain.Icon(ent.Icon),
		Status:      domain.Status(ent.Status),
		BoardID:     ent.PartitionKey,
		CreatedAt:   time.UnixMicro(ent.CreatedAt).UTC(),
	}, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func (s *Tables) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	b, err := s.getBoardRow(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	if b.Tasks, err = s.queryTasks(ctx, "PartitionKey eq '"+id+"'"); err != nil {
		return domain.Board{}, err
	}
	sort.SliceStable(b.Tasks, func(i, j int) bool { return b.Tasks[i].CreatedAt.Before(b.Tasks[j].CreatedAt) })
	return b, nil
}

func (s *Tables) CreateBoard(ctx context.Context) (domain.Board, error) {
	b := newBoard(uuid.NewString())
	payload, err := encodeBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	if _, err := s.boardTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Board{}, fmt.Errorf("failed to create board: %w", err)
	}

	actions := make([]aztables.TransactionAction, 0, 3)
	for _, seed := range domain.SeedTasks(b.ID) {
		if err := seed.Normalize(); err != nil {
			return domain.Board{}, fmt.Errorf("seed task: %w", err)
		}
		t := newTask(seed)
		data, err := encodeTask(t)
		if err != nil {
			return domain.Board{}, err
		}
		actions = append(actions, aztables.TransactionAction{ActionType: aztables.TransactionTypeAdd, Entity: data})
		b.Tasks = append(b.Tasks, t)
	}
	if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
		// The board row is written outside the task partition's transaction;
		// remove it so a failed create leaves nothing behind.
		_, _ = s.boardTable.DeleteEntity(ctx, boardPartition, b.ID, nil)
		return domain.Board{}, fmt.Errorf("failed to create seed tasks: %w", err)
	}
	return b, nil
}

func (s *Tables) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	b, err := s.getBoardRow(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	b = patch.Apply(b)
	b.UpdatedAt = after(b.UpdatedAt)
	payload, err := encodeBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	et := azcore.ETagAny
	if _, err := s.boardTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge}); err != nil {
		if isNotFound(err) {
			return domain.Board{}, domain.ErrBoardNotFound
		}
		return domain.Board{}, fmt.Errorf("update board: %w", err)
	}
	if b.Tasks, err = s.queryTasks(ctx, "PartitionKey eq '"+id+"'"); err != nil {
		return domain.Board{}, err
	}
	sort.SliceStable(b.Tasks, func(i, j int) bool { return b.Tasks[i].CreatedAt.Before(b.Tasks[j].CreatedAt) })
	return b, nil
}

func (s *Tables) DeleteBoard(ctx context.Context, id string) error {
	if _, err := s.getBoardRow(ctx, id); err != nil {
		return err
	}
	tasks, err := s.queryTasks(ctx, "PartitionKey eq '"+id+"'")
	if err != nil {
		return err
	}
	for start := 0; start < len(tasks); start += maxBatchSize {
		end := min(start+maxBatchSize, len(tasks))
		actions := make([]aztables.TransactionAction, 0, end-start)
		for _, t := range tasks[start:end] {
			key, err := json.Marshal(tableKeys{PartitionKey: t.BoardID, RowKey: t.ID})
			if err != nil {
				return err
			}
			actions = append(actions, aztables.TransactionAction{ActionType: aztables.TransactionTypeDelete, Entity: key})
		}
		if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
			return fmt.Errorf("delete board tasks: %w", err)
		}
	}
	if _, err := s.boardTable.DeleteEntity(ctx, boardPartition, id, nil); err != nil {
		if isNotFound(err) {
			return domain.ErrBoardNotFound
		}
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

func (s *Tables) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	filter := ""
	if boardID != "" {
		if !validID(boardID) {
			return []domain.Task{}, nil
		}
		filter = "PartitionKey eq '" + boardID + "'"
	}
	tasks, err := s.queryTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *Tables) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if !validID(id) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	tasks, err := s.queryTasks(ctx, "RowKey eq '"+id+"'")
	if err != nil {
		return domain.Task{}, err
	}
	if len(tasks) == 0 {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return tasks[0], nil
}

func (s *Tables) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	if _, err := s.getBoardRow(ctx, in.BoardID); err != nil {
		return domain.Task{}, err
	}
	t := newTask(in)
	payload, err := encodeTask(t)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *Tables) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	t = patch.Apply(t)
	payload, err := encodeTask(t)
	if err != nil {
		return domain.Task{}, err
	}
	et := azcore.ETagAny
	if _, err := s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace}); err != nil {
		if isNotFound(err) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (s *Tables) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.DeleteEntity(ctx, t.BoardID, t.ID, nil); err != nil {
		if isNotFound(err) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("delete task: %w", err)
	}
	return t, nil
}

func (s *Tables) getBoardRow(ctx context.Context, id string) (domain.Board, error) {
	if !validID(id) {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	ent, err := s.boardTable.GetEntity(ctx, boardPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Board{}, domain.ErrBoardNotFound
		}
		return domain.Board{}, fmt.Errorf("get board: %w", err)
	}
	return decodeBoard(ent.Value)
}

func (s *Tables) queryTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	var opts *aztables.ListEntitiesOptions
	if filter != "" {
		opts = &aztables.ListEntitiesOptions{Filter: &filter}
	}
	pager := s.taskTable.NewListEntitiesPager(opts)
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		for _, e := range resp.Entities {
			t, err := decodeTask(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}
