package middleware

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketExhausts(t *testing.T) {
	ctx := context.Background()
	tb := NewTokenBucket(3, 0)

	for i := 0; i < 3; i++ {
		if !tb.Allow(ctx) {
			t.Fatalf("expected token %d to be available", i)
		}
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected bucket to be empty")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	ctx := context.Background()
	tb := NewTokenBucket(1, 100)

	if !tb.Allow(ctx) {
		t.Fatalf("expected initial token")
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected bucket to be empty")
	}

	time.Sleep(30 * time.Millisecond)

	if !tb.Allow(ctx) {
		t.Fatalf("expected refill after wait")
	}
}
