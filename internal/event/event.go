package event

import (
	"sync"
	"time"

	"github.com/CarRentChain/CarRentChain/internal/common/logger"
	"github.com/CarRentChain/CarRentChain/internal/common/middleware"
)

// Type 市场物品事件类型，供链下观察者消费；核心逻辑不依赖这些事件。
type Type string

const (
	TypeItemCreated Type = "item_created"
	TypeItemUpdated Type = "item_updated"
	TypeItemDeleted Type = "item_deleted"
)

// Event 发射时刻的可变字段快照。
type Event struct {
	Type   Type
	ItemID string
	Kind   string
	At     time.Time
	Fields map[string]interface{}
}

// Sink 事件出口（日志、消息队列等）。
type Sink interface {
	Publish(Event) error
}

// Emitter fire-and-forget 的事件发射器。
// Publish 失败只记日志，绝不影响业务事务；出口调用套在熔断器里，
// 避免出口持续故障时反复拖慢调用路径。
type Emitter struct {
	sink    Sink
	breaker *middleware.CircuitBreaker
	log     logger.Logger
}

func NewEmitter(sink Sink, log logger.Logger) *Emitter {
	return &Emitter{
		sink:    sink,
		breaker: middleware.NewCircuitBreaker("event-sink", 5, 30*time.Second),
		log:     log,
	}
}

// Emit 发射一个事件。nil Emitter / nil sink 直接忽略。
func (e *Emitter) Emit(ev Event) {
	if e == nil || e.sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	err := e.breaker.Call(func() error {
		return e.sink.Publish(ev)
	})
	if err != nil && e.log != nil {
		e.log.Warnf("event emit failed type=%s item=%s: %v", ev.Type, ev.ItemID, err)
	}
}

// LogSink 把事件写进结构化日志。
type LogSink struct {
	Log logger.Logger
}

func (s LogSink) Publish(ev Event) error {
	if s.Log == nil {
		return nil
	}
	fields := map[string]interface{}{
		"type":    string(ev.Type),
		"item_id": ev.ItemID,
		"kind":    ev.Kind,
		"at":      ev.At.Format(time.RFC3339),
	}
	for k, v := range ev.Fields {
		fields[k] = v
	}
	s.Log.WithFields(fields).Info("market item event")
	return nil
}

// MemorySink 测试用的内存收集器。
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	// Fail 非 nil 时 Publish 返回该错误（测试熔断路径用）。
	Fail error
}

func (s *MemorySink) Publish(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
