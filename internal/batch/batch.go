// Package batch runs the extraction pipeline over many documents.
package batch

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"invoiceapi/internal/extract"
)

// Processor extracts a single document. *extract.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, src extract.Source) extract.Result
}

type Options struct {
	// Workers bounds the documents processed at once. Zero means GOMAXPROCS.
	Workers int
	// Timeout limits each document. Zero means no limit.
	Timeout time.Duration
}

// Run processes sources concurrently and returns one result per source, in input
// order. A document that fails or times out never stops the others; its result
// carries the error and a sentinel record.
func Run(ctx context.Context, proc Processor, sources []extract.Source, opts Options) []extract.Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]extract.Result, len(sources))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			dctx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			results[i] = proc.Process(dctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
