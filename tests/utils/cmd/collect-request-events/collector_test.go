package main

import "testing"

func TestCollectorAggregatesRequestEvents(t *testing.T) {
	collector := newCollector(requestEventName, requestEventDomain)

	lines := []string{
		`{"level":"info","msg":"observability.event","event.name":"taskboard.api.request","event.domain":"app","severity_text":"INFO","severity_number":9,"attributes":{"http.method":"GET","http.route":"/boards/:id","http.status_code":200,"taskboard.request.total_ms":12.5,"taskboard.request.store_ms":8,"taskboard.request.tasks_returned":3}}`,
		`board-api-1  | {"level":"warning","msg":"observability.event","event.name":"taskboard.api.request","event.domain":"app","severity_text":"WARN","severity_number":13,"attributes":{"http.method":"GET","http.route":"/boards/:id","http.status_code":404,"taskboard.request.total_ms":7.5,"taskboard.request.error_stage":"not_found"}}`,
		`non-json line`,
		`{"level":"error","msg":"observability.event","event.name":"taskboard.api.request","event.domain":"app","severity_text":"ERROR","severity_number":17,"attributes":{"http.method":"POST","http.route":"/tasks","http.status_code":500,"taskboard.request.total_ms":30,"taskboard.request.error_stage":"storage"}}`,
		`{"level":"info","msg":"store ready","driver":"memory"}`,
	}
	for _, line := range lines {
		collector.ingest(line)
	}

	summary := collector.summary()

	if summary.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", summary.TotalEvents)
	}
	if summary.SkippedLines != 1 {
		t.Fatalf("expected 1 skipped line, got %d", summary.SkippedLines)
	}
	if summary.StatusCounts["200"] != 1 || summary.StatusCounts["404"] != 1 || summary.StatusCounts["500"] != 1 {
		t.Fatalf("unexpected status counts: %#v", summary.StatusCounts)
	}
	if len(summary.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %#v", summary.Routes)
	}
	board := summary.Routes[0]
	if board.Route != "GET /boards/:id" || board.Requests != 2 || board.TotalMs.Avg != 10 {
		t.Fatalf("unexpected board route summary: %#v", board)
	}
	if board.StoreMs.Count != 1 || board.StoreMs.Max != 8 {
		t.Fatalf("unexpected store timings: %#v", board.StoreMs)
	}
	if tasks := summary.Routes[1]; tasks.Route != "POST /tasks" || tasks.Errors != 1 {
		t.Fatalf("unexpected tasks route summary: %#v", tasks)
	}
	if summary.TasksReturned.Count != 1 || summary.TasksReturned.Max != 3 {
		t.Fatalf("unexpected tasks returned: %#v", summary.TasksReturned)
	}
	if summary.ErrorStages["storage"] != 1 || summary.ErrorStages["not_found"] != 1 {
		t.Fatalf("unexpected error stages: %#v", summary.ErrorStages)
	}
	if summary.ShortString() == "" {
		t.Fatal("expected short summary to be non-empty")
	}
}
