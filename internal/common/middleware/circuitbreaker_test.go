package middleware

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Hour)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.GetState())
	}

	// 熔断开启后调用被直接拒绝，函数不会执行
	called := false
	err := cb.Call(func() error { called = true; return nil })
	if err == nil || called {
		t.Fatalf("expected rejection without execution, err=%v called=%v", err, called)
	}
}

func TestCircuitBreakerRecoversViaHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	boom := errors.New("boom")

	_ = cb.Call(func() error { return boom })
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(20 * time.Millisecond)

	// 超时后半开，一次成功就回到关闭
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected success in half-open, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed state, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Hour)
	boom := errors.New("boom")

	_ = cb.Call(func() error { return boom })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return boom })

	// 中间的成功清零了失败计数，不会熔断
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed state, got %v", cb.GetState())
	}
}
