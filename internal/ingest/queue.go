package ingest

import (
	"context"
	"log"
	"sort"
	"sync"
)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Queue holds pending ingestion work, first-in-first-out. The claim step is
// the single point of concurrency control: once a worker claims an id it is
// the sole owner of that video's mutable state until it reaches a terminal
// status or is cancelled. At most one item per video exists at a time.
type Queue struct {
	mu       sync.Mutex
	items    chan string
	queued   map[string]bool
	inflight map[string]*job
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{
		items:    make(chan string, capacity),
		queued:   make(map[string]bool),
		inflight: make(map[string]*job),
	}
}

// Enqueue adds a video unless it is already queued or being processed.
// Duplicates are a no-op, reported by the return value.
func (q *Queue) Enqueue(videoID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued[videoID] || q.inflight[videoID] != nil {
		return false
	}
	select {
	case q.items <- videoID:
		q.queued[videoID] = true
		log.Printf("Enqueued video %s for processing", videoID)
		return true
	default:
		log.Printf("Ingestion queue full, rejecting video %s", videoID)
		return false
	}
}

// Cancel withdraws queued work, or interrupts the owning worker and blocks
// until it has abandoned the video. Cancelling an id that is neither queued
// nor in flight is a no-op, so concurrent deletes are safe.
func (q *Queue) Cancel(videoID string) {
	q.mu.Lock()
	if q.queued[videoID] {
		delete(q.queued, videoID)
		q.mu.Unlock()
		return
	}
	j := q.inflight[videoID]
	q.mu.Unlock()

	if j != nil {
		j.cancel()
		<-j.done
	}
}

func (q *Queue) Status() (int, []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	processing := make([]string, 0, len(q.inflight))
	for id := range q.inflight {
		processing = append(processing, id)
	}
	sort.Strings(processing)
	return len(q.queued), processing
}

// claim transfers ownership of a queued id to the calling worker. It returns
// false for ids whose work was withdrawn while they sat in the channel.
func (q *Queue) claim(parent context.Context, videoID string) (context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.queued[videoID] {
		return nil, false
	}
	delete(q.queued, videoID)

	ctx, cancel := context.WithCancel(parent)
	q.inflight[videoID] = &job{cancel: cancel, done: make(chan struct{})}
	return ctx, true
}

func (q *Queue) finish(videoID string) {
	q.mu.Lock()
	j := q.inflight[videoID]
	delete(q.inflight, videoID)
	q.mu.Unlock()

	if j != nil {
		j.cancel()
		close(j.done)
	}
}
