package memory

import (
	"context"
	"testing"

	"quiz-starter-service/internal/domain"
)

func TestKVLifecycle(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()

	if _, ok, _ := kv.Get(ctx, "missing"); ok {
		t.Fatalf("expected absent key")
	}
	if err := kv.Set(ctx, "quiz_progress:u1:html", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := kv.Get(ctx, "quiz_progress:u1:html")
	if err != nil || !ok || string(value) != `{"a":1}` {
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
	kv := NewKV()
	_ = kv.Set(ctx, "quiz_progress:u1:html", []byte("a"))
	_ = kv.Set(ctx, "quiz_progress:u1:css", []byte("b"))
	_ = kv.Set(ctx, "quiz_progress:u2:html", []byte("c"))

	if err := kv.DeletePrefix(ctx, "quiz_progress:u1:"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "quiz_progress:u1:html"); ok {
		t.Fatalf("expected u1 keys removed")
	}
	if _, ok, _ := kv.Get(ctx, "quiz_progress:u2:html"); !ok {
		t.Fatalf("expected u2 key kept")
	}
}

func TestHistoryLedgerAppendReadClear(t *testing.T) {
	ctx := context.Background()
	ledger := NewHistoryLedger()

	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{ID: "r1", UserID: "u1", Theme: "html"})
	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{ID: "r2", UserID: "u1", Theme: "css"})
	_ = ledger.Append(ctx, "u2", domain.HistoryRecord{ID: "r3", UserID: "u2", Theme: "html"})

	records, err := ledger.ReadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r1" || records[1].ID != "r2" {
		t.Fatalf("expected insertion order preserved, got %+v", records)
	}

	users, _ := ledger.Users(ctx)
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Fatalf("expected [u1 u2], got %v", users)
	}

	if err := ledger.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	records, _ = ledger.ReadAll(ctx, "u1")
	if len(records) != 0 {
		t.Fatalf("expected empty history after clear")
	}
}

func TestHistoryLedgerCorrectFirst(t *testing.T) {
	ctx := context.Background()
	ledger := NewHistoryLedger()

	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{
		ID:    "r1",
		Score: 0,
		QuestionResults: []domain.QuestionResult{
			{Question: "X", IsCorrect: false},
		},
	})
	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{
		ID:    "r2",
		Score: 1,
		QuestionResults: []domain.QuestionResult{
			{Question: "X", IsCorrect: false},
		},
	})

	changed, err := ledger.CorrectFirst(ctx, "u1", "X")
	if err != nil || !changed {
		t.Fatalf("expected correction applied, changed=%v err=%v", changed, err)
	}

	records, _ := ledger.ReadAll(ctx, "u1")
	if records[0].Score != 1 || !records[0].QuestionResults[0].IsCorrect {
		t.Fatalf("first record not corrected: %+v", records[0])
	}
	if records[1].Score != 1 || records[1].QuestionResults[0].IsCorrect {
		t.Fatalf("second record must stay untouched: %+v", records[1])
	}

	changed, _ = ledger.CorrectFirst(ctx, "u1", "unknown")
	if changed {
		t.Fatalf("expected no correction for unknown question")
	}
}

func TestReadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ledger := NewHistoryLedger()
	_ = ledger.Append(ctx, "u1", domain.HistoryRecord{
		ID:              "r1",
		QuestionResults: []domain.QuestionResult{{Question: "X"}},
	})

	records, _ := ledger.ReadAll(ctx, "u1")
	records[0].QuestionResults[0].Question = "mutated"

	fresh, _ := ledger.ReadAll(ctx, "u1")
	if fresh[0].QuestionResults[0].Question != "X" {
		t.Fatalf("ledger state leaked through ReadAll")
	}
}
