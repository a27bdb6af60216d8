package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smart-nutrition/internal/database"
	"smart-nutrition/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStoreDailyUsageAndCleanup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, time.May, 10, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	records := []ExecutionMetric{
		{Component: "vision", Model: "gemini-2.5-flash", PromptTokens: 100, CompletionTokens: 40, LatencyMS: 900, Timestamp: now.Add(-time.Hour)},
		{Component: "vision", Model: "gemini-2.5-flash", PromptTokens: 50, CompletionTokens: 10, LatencyMS: 700, Timestamp: now.Add(-2 * time.Hour)},
		{Component: "vision", Model: "gpt-4o-mini", PromptTokens: 30, CompletionTokens: 5, LatencyMS: 400, Timestamp: now.AddDate(0, 0, -1)},
		{Component: "vision", Model: "gpt-4o-mini", PromptTokens: 999, CompletionTokens: 999, LatencyMS: 1, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, r := range records {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := s.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("Expected 2 days of usage, got %d: %+v", len(usage), usage)
	}
	today := usage[0]
	if today.Date != "2026-05-10" || today.TotalPrompt != 150 || today.TotalCompletion != 50 || today.TotalExecution != 2 {
		t.Errorf("Unexpected usage for today: %+v", today)
	}
	if usage[1].Date != "2026-05-09" || usage[1].TotalExecution != 1 {
		t.Errorf("Unexpected usage for yesterday: %+v", usage[1])
	}

	deleted, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted record, got %d", deleted)
	}
}

func TestRecordMetaSkipsEmptyUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.RecordMeta(ctx, shared.CallMeta{Component: "vision"}); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	err := s.RecordMeta(ctx, shared.CallMeta{
		Component: "vision",
		Usage:     shared.TokenUsage{PromptTokens: 12, CompletionTokens: 3, Model: "m"},
		Latency:   1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}

	var count int
	var latency int64
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(MAX(latency_ms), 0) FROM execution_metrics`).Scan(&count, &latency); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored metric, got %d", count)
	}
	if latency != 1500 {
		t.Errorf("Expected latency 1500ms, got %d", latency)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}
	h := GetSysHealth(dir)
	if h.DataDiskSize != "2.0 KB" {
		t.Errorf("Expected 2.0 KB, got %s", h.DataDiskSize)
	}
	if h.Goroutines < 1 {
		t.Errorf("Expected at least one goroutine, got %d", h.Goroutines)
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := HumanSize(in); got != want {
			t.Errorf("HumanSize(%d): expected %s, got %s", in, want, got)
		}
	}
}
