package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-starter-service/internal/domain"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(newTestClient(t), time.Minute)

	if _, ok, err := kv.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected absent without error, ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "quiz_progress:u1:html", []byte(`{"score":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := kv.Get(ctx, "quiz_progress:u1:html")
	if err != nil || !ok || string(value) != `{"score":1}` {
		t.Fatalf("get: ok=%v err=%v value=%s", ok, err, value)
	}
	if err := kv.Delete(ctx, "quiz_progress:u1:html"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "quiz_progress:u1:html"); ok {
		t.Fatalf("expected deleted key absent")
	}
}

func TestKVDeletePrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(newTestClient(t), 0)
	_ = kv.Set(ctx, "quiz_progress:u1:html", []byte("a"))
	_ = kv.Set(ctx, "quiz_progress:u1:css", []byte("b"))
	_ = kv.Set(ctx, "quiz_progress:u2:html", []byte("c"))

	if err := kv.DeletePrefix(ctx, "quiz_progress:u1:"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "quiz_progress:u1:css"); ok {
		t.Fatalf("expected u1 keys removed")
	}
	if _, ok, _ := kv.Get(ctx, "quiz_progress:u2:html"); !ok {
		t.Fatalf("expected u2 key kept")
	}
}

func TestHistoryLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger := NewHistoryLedger(newTestClient(t))

	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{ID: "r1", Theme: "html", Score: 2, TotalQuestions: 3})
	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{ID: "r2", Theme: "css", Score: 1, TotalQuestions: 2})
	_ = ledger.Append(ctx, "u2", domain.HistoryRecord{ID: "r3", Theme: "html"})

	records, err := ledger.ReadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r1" || records[1].ID != "r2" {
		t.Fatalf("expected chronological order, got %+v", records)
	}

	users, err := ledger.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Fatalf("expected [u1 u2], got %v", users)
	}

	if err := ledger.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	records, _ = ledger.ReadAll(ctx, "u1")
	if len(records) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(records))
	}
}

func TestHistoryLedgerCorrectFirst(t *testing.T) {
	ctx := context.Background()
	ledger := NewHistoryLedger(newTestClient(t))

	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{
		ID:              "r1",
		Score:           0,
		QuestionResults: []domain.QuestionResult{{Question: "X", IsCorrect: false}},
	})
	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{
		ID:              "r2",
		Score:           0,
		QuestionResults: []domain.QuestionResult{{Question: "X", IsCorrect: false}},
	})

	changed, err := ledger.CorrectFirst(ctx, "u1", "X")
	if err != nil || !changed {
		t.Fatalf("correct first: changed=%v err=%v", changed, err)
	}

	records, _ := ledger.ReadAll(ctx, "u1")
	if records[0].Score != 1 || !records[0].QuestionResults[0].IsCorrect {
		t.Fatalf("first record not corrected: %+v", records[0])
	}
	if records[1].Score != 0 || records[1].QuestionResults[0].IsCorrect {
		t.Fatalf("second record must stay untouched: %+v", records[1])
	}
}

func TestHistoryLedgerToleratesMalformedValue(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	ledger := NewHistoryLedger(client)

	client.Set(ctx, "quiz_history:u1", "not json", 0)

	records, err := ledger.ReadAll(ctx, "u1")
	if err != nil || len(records) != 0 {
		t.Fatalf("malformed history must read as empty, got %d records err=%v", len(records), err)
	}
}
