package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tv-bridge/internal/config"
	"tv-bridge/internal/execution"
	"tv-bridge/internal/signal"
	"tv-bridge/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestService_RecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordSignal(ctx, signal.Signal{Ticker: "MNQ", Action: signal.ActionBuy, Quantity: 2})
	svc.RecordOrder(ctx, "MNQ", execution.Result{Outcome: execution.OutcomeAccepted, Status: 200, ClOrdID: "abc"})
	svc.RecordError(ctx, "合约解析失败", errors.New("boom"), map[string]interface{}{"ticker": "MNQ"})

	events, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// 最近的事件排在最前。
	if events[0].Type != EventError || events[2].Type != EventSignal {
		t.Errorf("event order = [%s %s %s], want newest first", events[0].Type, events[1].Type, events[2].Type)
	}
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			t.Errorf("event %s has zero timestamp", ev.Type)
		}
	}
}

func TestService_ListEventsFiltersByType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordSignal(ctx, signal.Signal{Ticker: "MES", Action: signal.ActionSell, Quantity: 1})
	svc.RecordOrder(ctx, "MES", execution.Result{Outcome: execution.OutcomeRejected, Status: 400})

	events, err := svc.ListEvents(ctx, EventOrder, 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	raw, ok := events[0].Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("payload type = %T, want json.RawMessage", events[0].Payload)
	}
	var payload OrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode order payload: %v", err)
	}
	if payload.Ticker != "MES" || payload.Result.Status != 400 {
		t.Errorf("payload = %+v, want ticker MES status 400", payload)
	}
}

func TestService_ListEventsHonorsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordSignal(ctx, signal.Signal{Ticker: "MNQ", Action: signal.ActionBuy, Quantity: 1})
	}

	events, err := svc.ListEvents(ctx, EventSignal, 3)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want 3", len(events))
	}
}
