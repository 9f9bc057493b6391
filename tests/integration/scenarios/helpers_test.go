package scenarios

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"taskboard/tests/integration/internal/httpclient"
)

type errorBody struct {
	Error string `json:"error"`
}

// apiBase returns BOARD_API_URL or skips the test when it is unset or the
// API is not answering its health check.
func apiBase(t *testing.T) string {
	t.Helper()
	base := strings.TrimRight(os.Getenv("BOARD_API_URL"), "/")
	if base == "" {
		t.Skip("skipping, BOARD_API_URL not set")
	}
	health := os.Getenv("HEALTH_ENDPOINT")
	if health == "" {
		health = "/healthz"
	}
	hc := &http.Client{Timeout: 5 * time.Second}
	resp, err := hc.Get(base + health)
	if err != nil {
		t.Skipf("skipping, API not reachable: %v", err)
	}
	_ = resp.Body.Close()
	return base
}

func newClient(t *testing.T) *httpclient.Client {
	return httpclient.New(apiBase(t))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
