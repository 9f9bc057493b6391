package storage

import (
	"encoding/json"
	"testing"
	"time"

	"taskboard/board-api/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	created := time.Date(2026, 10, 18, 9, 30, 0, 123000, time.UTC)
	task := domain.Task{
		ID: testTaskID, Name: "Write", Description: "docs", Icon: domain.IconCoffee,
		Status: domain.StatusWontDo, BoardID: testBoardID, CreatedAt: created,
	}

	data, err := encodeTask(task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if raw["PartitionKey"] != testBoardID || raw["RowKey"] != testTaskID {
		t.Fatalf("unexpected keys: %v", raw)
	}
	if raw["CreatedAt@odata.type"] != edmInt64 {
		t.Fatalf("expected Int64 annotation, got %v", raw["CreatedAt@odata.type"])
	}
	if _, ok := raw["Timestamp"]; ok {
		t.Fatalf("Timestamp must not be written")
	}

	got, err := decodeTask(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("createdAt mismatch: %v vs %v", got.CreatedAt, task.CreatedAt)
	}
	got.CreatedAt = task.CreatedAt
	if got != task {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, task)
	}
}

func TestDecodeBoardEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"board","RowKey":"b1","Timestamp":"2026-10-18T09:00:00Z","Name":"Board","Description":"Desc","CreatedAt":"1760778000000000","UpdatedAt":"1760778060000000"}`)

	b, err := decodeBoard(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ID != "b1" || b.Name != "Board" || b.Description != "Desc" {
		t.Fatalf("unexpected board: %+v", b)
	}
	if b.UpdatedAt.Sub(b.CreatedAt) != time.Minute {
		t.Fatalf("unexpected timestamps: %v %v", b.CreatedAt, b.UpdatedAt)
	}
}
