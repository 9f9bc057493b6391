package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"taskboard/board-api/domain"
	"taskboard/client"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

type counters struct {
	cycles   atomic.Uint64
	requests atomic.Uint64
	failures atomic.Uint64
	latency  atomic.Int64
}

// cycle runs one board through its whole life: create, add tasks, update,
// list, delete. Every request is counted.
func cycle(ctx context.Context, c *client.Client, tasksPerBoard int, n *counters) error {
	call := func(fn func() error) error {
		start := time.Now()
		err := fn()
		n.requests.Add(1)
		n.latency.Add(int64(time.Since(start)))
		if err != nil {
			n.failures.Add(1)
		}
		return err
	}

	var board domain.Board
	if err := call(func() (err error) {
		board, err = c.CreateBoard(ctx)
		return err
	}); err != nil {
		return err
	}
	for i := 0; i < tasksPerBoard; i++ {
		var task domain.Task
		in := client.TaskInput{Name: fmt.Sprintf("load task %d", i), Icon: domain.IconBooks, Status: domain.StatusToDo}
		if err := call(func() (err error) {
			task, err = c.CreateTask(ctx, board.ID, in)
			return err
		}); err != nil {
			return err
		}
		in.Status = domain.StatusCompleted
		if err := call(func() error {
			_, err := c.UpdateTask(ctx, task.ID, in)
			return err
		}); err != nil {
			return err
		}
	}
	if err := call(func() error {
		_, err := c.FetchBoard(ctx, board.ID)
		return err
	}); err != nil {
		return err
	}
	if err := call(func() error { return c.DeleteBoard(ctx, board.ID) }); err != nil {
		return err
	}
	n.cycles.Add(1)
	return nil
}

func run(ctx context.Context, baseURL string, workers, tasksPerBoard int) *counters {
	var n counters
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c := client.New(baseURL, client.NewMemoryStore())
			backoff := 100 * time.Millisecond
			for ctx.Err() == nil {
				if err := cycle(ctx, c, tasksPerBoard, &n); err != nil {
					if ctx.Err() != nil {
						return
					}
					time.Sleep(backoff)
					backoff = min(backoff*2, 2*time.Second)
					continue
				}
				backoff = 100 * time.Millisecond
			}
		}()
	}
	wg.Wait()
	return &n
}

func main() {
	baseURL := getenv("BOARD_API_URL", "http://localhost:8080/api")
	workers := getenvInt("LOAD_WORKERS", 20)
	tasksPerBoard := getenvInt("TASKS_PER_BOARD", 5)
	duration := time.Duration(getenvInt("DURATION_SEC", 60)) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	n := run(ctx, baseURL, workers, tasksPerBoard)

	requests := n.requests.Load()
	failures := n.failures.Load()
	var failureRate, avgMs float64
	if requests > 0 {
		failureRate = float64(failures) / float64(requests)
		avgMs = float64(n.latency.Load()) / float64(requests) / float64(time.Millisecond)
	}
	fmt.Printf("workers=%d duration_sec=%d cycles=%d requests=%d failures=%d avg_ms=%.2f\n",
		workers, int(duration.Seconds()), n.cycles.Load(), requests, failures, avgMs)
	if n.cycles.Load() == 0 || failureRate > 0.01 {
		os.Exit(1)
	}
}
