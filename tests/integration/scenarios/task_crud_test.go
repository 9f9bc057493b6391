package scenarios

import (
	"net/http"
	"testing"

	"taskboard/board-api/domain"
	"taskboard/tests/integration/internal/assertx"
)

func TestCreateEditDeleteTask(t *testing.T) {
	client := newClient(t)
	ctx := testContext(t)

	var board domain.Board
	resp, err := client.PostJSON(ctx, "/boards", nil, &board)
	assertx.Status(t, resp, err, http.StatusCreated)
	t.Cleanup(func() { _, _ = client.Delete(ctx, "/boards/"+board.ID, nil) })

	var task domain.Task
	resp, err = client.PostJSON(ctx, "/tasks", map[string]string{
		"name":    "Integration task",
		"icon":    string(domain.IconBooks),
		"status":  string(domain.StatusToDo),
		"boardId": board.ID,
	}, &task)
	assertx.Status(t, resp, err, http.StatusCreated)
	assertx.Equal(t, board.ID, task.BoardID)

	var tasks []domain.Task
	resp, err = client.GetJSON(ctx, "/tasks?boardId="+board.ID, &tasks)
	assertx.Status(t, resp, err, http.StatusOK)
	assertx.Equal(t, 4, len(tasks))
	assertx.Equal(t, task.ID, tasks[0].ID)

	var updated domain.Task
	resp, err = client.PutJSON(ctx, "/tasks/"+task.ID, map[string]string{"status": string(domain.StatusCompleted)}, &updated)
	assertx.Status(t, resp, err, http.StatusOK)
	assertx.Equal(t, domain.StatusCompleted, updated.Status)
	assertx.Equal(t, task.Name, updated.Name)

	var deleted struct {
		Message string `json:"message"`
	}
	resp, err = client.Delete(ctx, "/tasks/"+task.ID, &deleted)
	assertx.Status(t, resp, err, http.StatusOK)
	assertx.Equal(t, "Task deleted successfully.", deleted.Message)

	var notFound errorBody
	resp, err = client.GetJSON(ctx, "/tasks/"+task.ID, &notFound)
	assertx.Status(t, resp, err, http.StatusNotFound)
	assertx.Equal(t, "Task not found.", notFound.Error)
}

func TestCreateTaskValidation(t *testing.T) {
	client := newClient(t)
	ctx := testContext(t)

	var body errorBody
	resp, err := client.PostJSON(ctx, "/tasks", map[string]string{"name": "orphan"}, &body)
	assertx.Status(t, resp, err, http.StatusBadRequest)
	assertx.Equal(t, "Board ID is required", body.Error)

	resp, err = client.PostJSON(ctx, "/tasks", map[string]string{
		"name":    "orphan",
		"boardId": "00000000-0000-4000-8000-000000000000",
	}, &body)
	assertx.Status(t, resp, err, http.StatusBadRequest)
	assertx.Equal(t, "Board does not exist", body.Error)
}
