package queue

import (
	"context"
	"testing"

	"github.com/tipio/tipio/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	n1 := model.Notice{ID: "n1", UserID: "u1", Kind: model.NoticeAchievement, Subject: "first_prediction"}
	if !q.Enqueue(ctx, n1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	noticeChan := q.Dequeue(ctx)
	n := <-noticeChan
	if n.ID != "n1" {
		t.Errorf("expected n1, got %v", n.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	n1 := model.Notice{ID: "n1", UserID: "u1"}
	n2 := model.Notice{ID: "n2", UserID: "u2"}
	n3 := model.Notice{ID: "n3", UserID: "u3"}

	if !q.Enqueue(ctx, n1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, n2) {
		t.Error("expected enqueue to succeed")
	}

	// A full queue drops rather than blocks
	if q.Enqueue(ctx, n3) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected queue to be open")
	}

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	// Closing twice is a no-op
	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}

	// Enqueue after close fails
	if q.Enqueue(ctx, model.Notice{ID: "n1"}) {
		t.Error("expected enqueue to fail after close")
	}

	// Dequeue channel drains and closes
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected dequeue channel to be closed")
	}
}
