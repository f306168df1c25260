package transform

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Observer is notified once per finished request.
type Observer func(req Request, res Result)

// Worker runs transforms off the caller's goroutine with bounded
// parallelism. Results come back on per-request futures, in completion
// order, and are matched to requests only by RequestID.
type Worker struct {
	transformer *Transformer
	sem         *semaphore.Weighted
	observers   []Observer
	wg          sync.WaitGroup
}

type WorkerOption func(*Worker)

func WithObserver(o Observer) WorkerOption {
	return func(w *Worker) {
		w.observers = append(w.observers, o)
	}
}

func NewWorker(t *Transformer, opts ...WorkerOption) *Worker {
	concurrency := t.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := &Worker{
		transformer: t,
		sem:         semaphore.NewWeighted(int64(concurrency)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit starts req in the background. The returned channel receives
// exactly one Result and is never closed. Cancelling ctx does not stop a
// transform; use Await to stop waiting for it.
func (w *Worker) Submit(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	ctx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// A context that is never cancelled cannot fail Acquire.
		_ = w.sem.Acquire(ctx, 1)
		res := w.transformer.Transform(ctx, req)
		w.sem.Release(1)

		for _, o := range w.observers {
			o(req, res)
		}
		out <- res
	}()

	return out
}

// Do runs req and blocks until its result is ready.
func (w *Worker) Do(ctx context.Context, req Request) Result {
	return <-w.Submit(ctx, req)
}

// Await waits for a future from Submit or for ctx to end. A result that
// arrives after ctx ended is dropped.
func (w *Worker) Await(ctx context.Context, future <-chan Result) (Result, error) {
	select {
	case res := <-future:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Dispatch submits every request and streams their results as they
// complete. The channel is closed after the last result.
func (w *Worker) Dispatch(ctx context.Context, reqs ...Request) <-chan Result {
	out := make(chan Result, len(reqs))

	var pending sync.WaitGroup
	pending.Add(len(reqs))
	for _, req := range reqs {
		future := w.Submit(ctx, req)
		go func() {
			defer pending.Done()
			out <- <-future
		}()
	}

	go func() {
		pending.Wait()
		close(out)
	}()

	return out
}

// Close waits for every submitted transform to finish.
func (w *Worker) Close() {
	w.wg.Wait()
}
