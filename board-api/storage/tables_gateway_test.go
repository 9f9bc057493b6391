package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"taskboard/board-api/domain"
)

const fakeTablesConnStr = "DefaultEndpointsProtocol=https;AccountName=taskboard;AccountKey=dGFza2JvYXJkLXRlc3Qta2V5;EndpointSuffix=core.windows.net"

var (
	entityPath = regexp.MustCompile(`^/(\w+)\(PartitionKey='([^']*)',RowKey='([^']*)'\)$`)
	queryPath  = regexp.MustCompile(`^/(\w+)\(\)$`)
	tablePath  = regexp.MustCompile(`^/(\w+)$`)
	keyFilter  = regexp.MustCompile(`^(PartitionKey|RowKey) eq '([^']*)'$`)
)

// fakeTableService serves aztables requests from memory. Rows are keyed by
// table, then by "partition/row".
type fakeTableService struct {
	mu          sync.Mutex
	rows        map[string]map[string]map[string]any
	batchSizes  []int
	deletes     []string
	failBatches bool
}

func newFakeTables(t *testing.T) (*Tables, *fakeTableService) {
	t.Helper()
	fake := &fakeTableService{rows: map[string]map[string]map[string]any{}}
	store, err := newTables(fakeTablesConnStr, "boards", "tasks", fake)
	if err != nil {
		t.Fatalf("new tables: %v", err)
	}
	return store, fake
}

func entityKey(e map[string]any) string {
	return fmt.Sprint(e["PartitionKey"], "/", e["RowKey"])
}

func (f *fakeTableService) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[table])
}

func (f *fakeTableService) seed(t *testing.T, table string, payload []byte) {
	t.Helper()
	var e map[string]any
	if err := json.Unmarshal(payload, &e); err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[table] == nil {
		f.rows[table] = map[string]map[string]any{}
	}
	f.rows[table][entityKey(e)] = e
}

func (f *fakeTableService) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := req.URL.Path
	if path == "/$batch" {
		return f.batch(req)
	}
	if m := entityPath.FindStringSubmatch(path); m != nil {
		table, key := m[1], m[2]+"/"+m[3]
		row, ok := f.rows[table][key]
		if !ok {
			return notFoundResponse(req), nil
		}
		switch req.Method {
		case http.MethodGet:
			return jsonResponse(req, http.StatusOK, row), nil
		case http.MethodDelete:
			delete(f.rows[table], key)
			f.deletes = append(f.deletes, table+":"+key)
			return fakeResponse(req, http.StatusNoContent, nil), nil
		case http.MethodPut, http.MethodPatch:
			var e map[string]any
			if err := json.NewDecoder(req.Body).Decode(&e); err != nil {
				return nil, err
			}
			if req.Method == http.MethodPatch {
				for k, v := range e {
					row[k] = v
				}
				e = row
			}
			f.rows[table][key] = e
			return fakeResponse(req, http.StatusNoContent, nil), nil
		}
	}
	if m := queryPath.FindStringSubmatch(path); m != nil && req.Method == http.MethodGet {
		filter := req.URL.Query().Get("$filter")
		match := keyFilter.FindStringSubmatch(filter)
		if filter != "" && match == nil {
			return nil, fmt.Errorf("unsupported filter %q", filter)
		}
		value := []map[string]any{}
		for _, row := range f.rows[m[1]] {
			if match == nil || row[match[1]] == match[2] {
				value = append(value, row)
			}
		}
		return jsonResponse(req, http.StatusOK, map[string]any{"value": value}), nil
	}
	if m := tablePath.FindStringSubmatch(path); m != nil && req.Method == http.MethodPost {
		var e map[string]any
		if err := json.NewDecoder(req.Body).Decode(&e); err != nil {
			return nil, err
		}
		if f.rows[m[1]] == nil {
			f.rows[m[1]] = map[string]map[string]any{}
		}
		if _, ok := f.rows[m[1]][entityKey(e)]; ok {
			return fakeResponse(req, http.StatusConflict, nil), nil
		}
		f.rows[m[1]][entityKey(e)] = e
		return jsonResponse(req, http.StatusCreated, e), nil
	}
	return nil, fmt.Errorf("unexpected request %s %s", req.Method, req.URL)
}

type batchOp struct {
	method string
	table  string
	key    string
	entity map[string]any
}

// batch applies every operation of the changeset or none of them.
func (f *fakeTableService) batch(req *http.Request) (*http.Response, error) {
	ops, err := readChangeset(req)
	if err != nil {
		return nil, err
	}
	f.batchSizes = append(f.batchSizes, len(ops))

	status := http.StatusNoContent
	for _, op := range ops {
		_, exists := f.rows[op.table][op.key]
		if f.failBatches || (op.method == http.MethodDelete) != exists {
			status = http.StatusConflict
		}
	}
	if status == http.StatusNoContent {
		for _, op := range ops {
			if f.rows[op.table] == nil {
				f.rows[op.table] = map[string]map[string]any{}
			}
			if op.method == http.MethodDelete {
				delete(f.rows[op.table], op.key)
			} else {
				f.rows[op.table][op.key] = op.entity
			}
		}
	}
	return batchResponse(req, status, len(ops)), nil
}

func readChangeset(req *http.Request) ([]batchOp, error) {
	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	outer, err := multipart.NewReader(req.Body, params["boundary"]).NextPart()
	if err != nil {
		return nil, err
	}
	_, params, err = mime.ParseMediaType(outer.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	inner := multipart.NewReader(outer, params["boundary"])

	var ops []batchOp
	for {
		part, err := inner.NextPart()
		if errors.Is(err, io.EOF) {
			return ops, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		head, body, _ := strings.Cut(string(data), "\r\n\r\n")
		requestLine, _, _ := strings.Cut(head, "\r\n")
		fields := strings.Fields(requestLine)
		if len(fields) < 2 {
			return nil, fmt.Errorf("bad changeset request line %q", requestLine)
		}
		u, err := url.Parse(fields[1])
		if err != nil {
			return nil, err
		}
		op := batchOp{method: fields[0]}
		if m := entityPath.FindStringSubmatch(u.Path); m != nil {
			op.table, op.key = m[1], m[2]+"/"+m[3]
		} else if m := tablePath.FindStringSubmatch(u.Path); m != nil {
			op.table = m[1]
			if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &op.entity); err != nil {
				return nil, fmt.Errorf("changeset entity: %w", err)
			}
			op.key = entityKey(op.entity)
		} else {
			return nil, fmt.Errorf("unexpected changeset path %q", u.Path)
		}
		ops = append(ops, op)
	}
}

func batchResponse(req *http.Request, status, n int) *http.Response {
	var changeset bytes.Buffer
	cw := multipart.NewWriter(&changeset)
	_ = cw.SetBoundary("changesetresponse_fake")
	for i := 0; i < n; i++ {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", "application/http")
		h.Set("Content-Transfer-Encoding", "binary")
		part, _ := cw.CreatePart(h)
		fmt.Fprintf(part, "HTTP/1.1 %d %s\r\n\r\n", status, http.StatusText(status))
	}
	_ = cw.Close()

	var body bytes.Buffer
	bw := multipart.NewWriter(&body)
	_ = bw.SetBoundary("batchresponse_fake")
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "multipart/mixed; boundary=changesetresponse_fake")
	part, _ := bw.CreatePart(h)
	_, _ = part.Write(changeset.Bytes())
	_ = bw.Close()

	resp := fakeResponse(req, http.StatusAccepted, body.Bytes())
	resp.Header.Set("Content-Type", "multipart/mixed; boundary=batchresponse_fake")
	return resp
}

func fakeResponse(req *http.Request, status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func jsonResponse(req *http.Request, status int, v any) *http.Response {
	data, _ := json.Marshal(v)
	resp := fakeResponse(req, status, data)
	resp.Header.Set("Content-Type", "application/json;odata=minimalmetadata")
	return resp
}

func notFoundResponse(req *http.Request) *http.Response {
	return jsonResponse(req, http.StatusNotFound, map[string]any{
		"odata.error": map[string]any{
			"code":    "ResourceNotFound",
			"message": map[string]any{"lang": "en-US", "value": "The specified resource does not exist."},
		},
	})
}

func TestTablesCreateBoardSeedsInOneTransaction(t *testing.T) {
	store, fake := newFakeTables(t)
	ctx := context.Background()

	board, err := store.CreateBoard(ctx)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if len(fake.batchSizes) != 1 || fake.batchSizes[0] != 3 {
		t.Fatalf("expected one batch of 3 seeds, got %v", fake.batchSizes)
	}

	got, err := store.GetBoard(ctx, board.ID)
	if err != nil {
		t.Fatalf("get board: %v", err)
	}
	if got.Name != domain.DefaultBoardName || len(got.Tasks) != 3 {
		t.Fatalf("unexpected board: %+v", got)
	}
	for i := 1; i < len(got.Tasks); i++ {
		if got.Tasks[i].CreatedAt.Before(got.Tasks[i-1].CreatedAt) {
			t.Fatalf("board tasks not in creation order: %+v", got.Tasks)
		}
	}
}

func TestTablesCreateBoardRemovesBoardWhenSeedingFails(t *testing.T) {
	store, fake := newFakeTables(t)
	fake.failBatches = true

	if _, err := store.CreateBoard(context.Background()); err == nil {
		t.Fatalf("expected seed failure")
	}
	if n := fake.count("boards"); n != 0 {
		t.Fatalf("expected board row to be removed, %d left", n)
	}
	if n := fake.count("tasks"); n != 0 {
		t.Fatalf("expected no tasks, got %d", n)
	}
	if len(fake.deletes) != 1 || !strings.HasPrefix(fake.deletes[0], "boards:"+boardPartition+"/") {
		t.Fatalf("expected the board row delete, got %v", fake.deletes)
	}
}

func TestTablesDeleteBoardBatchesTaskDeletes(t *testing.T) {
	store, fake := newFakeTables(t)
	ctx := context.Background()

	other, err := store.CreateBoard(ctx)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	board, err := store.CreateBoard(ctx)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	for i := 0; i < 247; i++ {
		payload, err := encodeTask(newTask(domain.NewTask{
			Name: fmt.Sprintf("task %d", i), Icon: domain.IconClock, Status: domain.StatusToDo, BoardID: board.ID,
		}))
		if err != nil {
			t.Fatalf("encode task: %v", err)
		}
		fake.seed(t, "tasks", payload)
	}

	fake.batchSizes = nil
	if err := store.DeleteBoard(ctx, board.ID); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if want := []int{100, 100, 50}; fmt.Sprint(fake.batchSizes) != fmt.Sprint(want) {
		t.Fatalf("expected batches %v, got %v", want, fake.batchSizes)
	}
	if _, err := store.GetBoard(ctx, board.ID); !errors.Is(err, domain.ErrBoardNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	tasks, err := store.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected only the other board's 3 tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.BoardID != other.ID {
			t.Fatalf("task from deleted board survived: %+v", task)
		}
	}
}

func TestTablesGetTaskAcrossPartitions(t *testing.T) {
	store, fake := newFakeTables(t)
	ctx := context.Background()

	if _, err := store.CreateBoard(ctx); err != nil {
		t.Fatalf("create board: %v", err)
	}
	board, err := store.CreateBoard(ctx)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	want := board.Tasks[1]

	got, err := store.GetTask(ctx, want.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ID != want.ID || got.BoardID != board.ID || got.Name != want.Name || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("unexpected task: %+v", got)
	}

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := store.GetTask(ctx, id); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Fatalf("get %q: expected not found, got %v", id, err)
		}
	}

	deleted, err := store.DeleteTask(ctx, want.ID)
	if err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if deleted.ID != want.ID {
		t.Fatalf("unexpected deleted task: %+v", deleted)
	}
	if last := fake.deletes[len(fake.deletes)-1]; last != "tasks:"+board.ID+"/"+want.ID {
		t.Fatalf("delete hit the wrong partition: %s", last)
	}
	if n := fake.count("tasks"); n != 5 {
		t.Fatalf("expected 5 tasks left, got %d", n)
	}
}
