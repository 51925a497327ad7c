package event

import (
	"errors"
	"testing"
	"time"
)

func TestEmitCollects(t *testing.T) {
	sink := &MemorySink{}
	em := NewEmitter(sink, nil)

	em.Emit(Event{Type: TypeItemCreated, ItemID: "car-1", Kind: "market_car"})
	em.Emit(Event{Type: TypeItemDeleted, ItemID: "car-1", Kind: "market_car"})

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != TypeItemCreated || events[1].Type != TypeItemDeleted {
		t.Fatalf("unexpected events: %#v", events)
	}
	// 未填时间时由 Emit 补上
	if events[0].At.IsZero() {
		t.Fatalf("expected At to be filled")
	}
}

func TestEmitKeepsExplicitTime(t *testing.T) {
	sink := &MemorySink{}
	em := NewEmitter(sink, nil)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	em.Emit(Event{Type: TypeItemUpdated, ItemID: "car-1", At: at})

	events := sink.Events()
	if len(events) != 1 || !events[0].At.Equal(at) {
		t.Fatalf("expected explicit At preserved, got %#v", events)
	}
}

func TestEmitNilSafety(t *testing.T) {
	// nil Emitter 和 nil sink 都不 panic
	var em *Emitter
	em.Emit(Event{Type: TypeItemCreated})

	em = NewEmitter(nil, nil)
	em.Emit(Event{Type: TypeItemCreated})
}

func TestEmitBreakerTripsOnFailingSink(t *testing.T) {
	sink := &MemorySink{Fail: errors.New("sink down")}
	em := NewEmitter(sink, nil)

	// 连续失败 5 次触发熔断
	for i := 0; i < 5; i++ {
		em.Emit(Event{Type: TypeItemCreated, ItemID: "car-1"})
	}

	// 出口恢复，但熔断器还开着：事件被直接丢弃
	sink.Fail = nil
	em.Emit(Event{Type: TypeItemCreated, ItemID: "car-2"})

	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected breaker to drop event, sink got %d", got)
	}
}
