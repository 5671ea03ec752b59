// Package batch evaluates transforms over large coordinate batches by
// splitting them into chunks handled by a fixed set of workers.
//
// Every transform applies the same formula to each coordinate pair with no
// dependency between elements, so chunks can be evaluated in any order and
// written straight into their slot of the output.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/skyrot/internal/metrics"
	"github.com/star/skyrot/internal/transform"
)

// DefaultChunkSize is used when a Pool is built with a non-positive chunk size.
const DefaultChunkSize = 4096

// chunkJob is a unit of work for the pool.
type chunkJob struct {
	offset int
	a, b   transform.Array
}

// chunkResult is the output of a single chunk.
type chunkResult struct {
	offset int
	a, b   transform.Array
	err    error
}

// Pool manages a fixed number of goroutines for parallel batch evaluation.
type Pool struct {
	workers   int
	chunkSize int
	logger    *slog.Logger
}

// NewPool creates a pool with the given number of workers and chunk size.
func NewPool(workers, chunkSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	metrics.SetBatchWorkers(workers)
	return &Pool{
		workers:   workers,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Evaluate applies t to the pair (a, b). Inputs larger than the chunk size
// are split across workers; outputs always keep the input shape.
func (p *Pool) Evaluate(ctx context.Context, t transform.Transform, a, b transform.Array) (transform.Array, transform.Array, error) {
	start := time.Now()
	outA, outB, err := p.evaluate(ctx, t, a, b)
	metrics.RecordEvaluation(string(t.Kind()), a.Len(), time.Since(start), err)
	return outA, outB, err
}

func (p *Pool) evaluate(ctx context.Context, t transform.Transform, a, b transform.Array) (transform.Array, transform.Array, error) {
	if !a.SameShape(b) || a.Len() != b.Len() {
		return transform.Array{}, transform.Array{}, fmt.Errorf("%w: %v vs %v", transform.ErrShapeMismatch, a.Shape, b.Shape)
	}
	if err := ctx.Err(); err != nil {
		return transform.Array{}, transform.Array{}, err
	}
	if a.Len() <= p.chunkSize {
		return t.Evaluate(a, b)
	}

	n := a.Len()
	numChunks := (n + p.chunkSize - 1) / p.chunkSize
	workers := min(p.workers, numChunks)

	p.logger.Debug("batch evaluation",
		"kind", t.Kind(),
		"points", n,
		"chunks", numChunks,
		"workers", workers,
	)
	metrics.AddBatchChunks(numChunks)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan chunkJob, workers*2)
	results := make(chan chunkResult, workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				ra, rb, err := t.Evaluate(job.a, job.b)
				select {
				case results <- chunkResult{offset: job.offset, a: ra, b: rb, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for off := 0; off < n; off += p.chunkSize {
			end := min(off+p.chunkSize, n)
			job := chunkJob{
				offset: off,
				a:      transform.Vector(a.Data[off:end]...),
				b:      transform.Vector(b.Data[off:end]...),
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	dataA := make([]float64, n)
	dataB := make([]float64, n)
	var done int
	var firstErr error

	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk at offset %d: %w", res.offset, res.err)
				cancel()
			}
			continue
		}
		copy(dataA[res.offset:], res.a.Data)
		copy(dataB[res.offset:], res.b.Data)
		done++
	}

	if firstErr != nil {
		return transform.Array{}, transform.Array{}, firstErr
	}
	if done < numChunks {
		if err := ctx.Err(); err != nil {
			return transform.Array{}, transform.Array{}, err
		}
		return transform.Array{}, transform.Array{}, fmt.Errorf("batch incomplete: %d of %d chunks", done, numChunks)
	}

	outA, err := transform.NewArray(dataA, a.Shape...)
	if err != nil {
		return transform.Array{}, transform.Array{}, err
	}
	outB, err := transform.NewArray(dataB, b.Shape...)
	if err != nil {
		return transform.Array{}, transform.Array{}, err
	}
	return outA, outB, nil
}
