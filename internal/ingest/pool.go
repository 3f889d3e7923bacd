package ingest

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/models"
)

// Pool runs a fixed set of ingestion workers against the queue. Each worker
// processes one video at a time end to end.
type Pool struct {
	queue    *Queue
	pipeline *Pipeline
	registry *library.Registry
	workers  int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPool(queue *Queue, pipeline *Pipeline, registry *library.Registry, workers int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	return &Pool{
		queue:    queue,
		pipeline: pipeline,
		registry: registry,
		workers:  workers,
	}
}

func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Printf("Started %d ingestion workers", p.workers)
}

// Stop interrupts in-flight work and waits for the workers to exit.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, n int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case videoID := <-p.queue.items:
			p.handle(ctx, videoID)
		}
	}
}

func (p *Pool) handle(ctx context.Context, videoID string) {
	workCtx, ok := p.queue.claim(ctx, videoID)
	if !ok {
		// Withdrawn while sitting in the channel.
		return
	}
	defer p.queue.finish(videoID)

	if err := p.registry.Transition(workCtx, videoID, models.StatusProcessing, ""); err != nil {
		if !errors.Is(err, library.ErrNotFound) {
			log.Printf("Video %s cannot start processing: %v", videoID, err)
		}
		return
	}

	err := p.pipeline.Process(workCtx, videoID)

	// Terminal transitions persist with a fresh context: the work context may
	// already be cancelled by shutdown, and losing the status write would leave
	// the video stuck in processing.
	persistCtx := context.Background()

	switch {
	case err == nil:
		if terr := p.registry.Transition(persistCtx, videoID, models.StatusCompleted, ""); terr != nil && !errors.Is(terr, library.ErrNotFound) {
			log.Printf("Failed to mark video %s completed: %v", videoID, terr)
		}
	case errors.Is(err, context.Canceled):
		// Deleted or shutting down. Leave no partial artifacts and write
		// nothing; a deleted video must see no further mutations.
		log.Printf("Processing of video %s cancelled", videoID)
		p.pipeline.Discard(videoID)
	case errors.Is(err, library.ErrNotFound):
		p.pipeline.Discard(videoID)
	default:
		log.Printf("Processing of video %s failed: %v", videoID, err)
		if terr := p.registry.Transition(persistCtx, videoID, models.StatusFailed, err.Error()); terr != nil && !errors.Is(terr, library.ErrNotFound) {
			log.Printf("Failed to mark video %s failed: %v", videoID, terr)
		}
	}
}
