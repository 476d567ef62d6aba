package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/vendalink/ordersync/internal/pkg/logger"
)

// ChunkDispatcher processes identifier lists in fixed-size chunks with a
// bounded number of chunks in flight. Within a chunk, per-identifier work
// runs concurrently; a fixed delay separates successive chunk groups to
// stay under a rolling rate limit.
type ChunkDispatcher struct {
	ChunkSize   int
	MaxInFlight int
	GroupDelay  time.Duration

	logger *logger.Logger
}

// NewChunkDispatcher creates a bounded-concurrency chunk dispatcher.
func NewChunkDispatcher(chunkSize, maxInFlight int, groupDelay time.Duration, log *logger.Logger) *ChunkDispatcher {
	return &ChunkDispatcher{
		ChunkSize:   chunkSize,
		MaxInFlight: maxInFlight,
		GroupDelay:  groupDelay,
		logger:      log,
	}
}

// Run dispatches fn for every id. A failing id is dropped with a warning
// and never aborts its chunk or the run; onChunkDone is invoked after each
// completed chunk with cumulative progress. Run only returns early when
// ctx is cancelled.
func (d *ChunkDispatcher) Run(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error, onChunkDone func(done, total int)) error {
	chunks := chunkIDs(ids, d.ChunkSize)
	total := len(ids)

	var processed int
	var progressMu sync.Mutex

	for group := 0; group < len(chunks); group += d.MaxInFlight {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		end := group + d.MaxInFlight
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for _, chunk := range chunks[group:end] {
			wg.Add(1)
			go func(chunk []string) {
				defer wg.Done()
				d.runChunk(ctx, chunk, fn)

				progressMu.Lock()
				processed += len(chunk)
				done := processed
				progressMu.Unlock()

				if onChunkDone != nil {
					onChunkDone(done, total)
				}
			}(chunk)
		}
		wg.Wait()

		if end < len(chunks) {
			time.Sleep(d.GroupDelay)
		}
	}

	return ctx.Err()
}

// runChunk issues every id's request concurrently and awaits them together.
func (d *ChunkDispatcher) runChunk(ctx context.Context, chunk []string, fn func(ctx context.Context, id string) error) {
	var wg sync.WaitGroup
	for _, id := range chunk {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := fn(ctx, id); err != nil {
				d.logger.WithFields(map[string]interface{}{
					"id": id,
				}).Warnf("dropping record after fetch failure: %v", err)
			}
		}(id)
	}
	wg.Wait()
}

func chunkIDs(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
