package ingest

import (
	"context"
	"testing"
	"time"
)

func TestQueue_EnqueueDeduplicates(t *testing.T) {
	q := NewQueue(10)

	if !q.Enqueue("v1") {
		t.Fatal("Expected first enqueue to succeed")
	}
	if q.Enqueue("v1") {
		t.Error("Expected duplicate enqueue to be a no-op")
	}

	queueLength, _ := q.Status()
	if queueLength != 1 {
		t.Errorf("Expected queue length 1, got %d", queueLength)
	}
}

func TestQueue_EnqueueRejectsInflight(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("v1")

	<-q.items
	if _, ok := q.claim(context.Background(), "v1"); !ok {
		t.Fatal("Expected claim to succeed")
	}

	if q.Enqueue("v1") {
		t.Error("Expected enqueue of in-flight video to be a no-op")
	}

	queueLength, processing := q.Status()
	if queueLength != 0 {
		t.Errorf("Expected empty queue, got length %d", queueLength)
	}
	if len(processing) != 1 || processing[0] != "v1" {
		t.Errorf("Expected v1 in processing, got %v", processing)
	}

	q.finish("v1")
	if !q.Enqueue("v1") {
		t.Error("Expected enqueue after finish to succeed")
	}
}

func TestQueue_CancelQueued(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("v1")

	q.Cancel("v1")

	<-q.items
	if _, ok := q.claim(context.Background(), "v1"); ok {
		t.Error("Expected claim of a withdrawn video to fail")
	}
}

func TestQueue_CancelWaitsForWorker(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("v1")

	<-q.items
	workCtx, ok := q.claim(context.Background(), "v1")
	if !ok {
		t.Fatal("Expected claim to succeed")
	}

	released := make(chan struct{})
	go func() {
		// Simulated worker: lets go only once its context is cancelled.
		<-workCtx.Done()
		time.Sleep(20 * time.Millisecond)
		close(released)
		q.finish("v1")
	}()

	q.Cancel("v1")

	select {
	case <-released:
	default:
		t.Error("Cancel returned before the worker abandoned the video")
	}
}

func TestQueue_CancelUnknownIsNoop(t *testing.T) {
	q := NewQueue(10)
	q.Cancel("missing")
}
