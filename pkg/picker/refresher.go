package picker

import (
	"context"
	"sync"

	"github.com/datatug/filepick/pkg/lister"
)

// Dispatcher runs f on the goroutine that owns a Machine. It must not block
// the caller waiting for f to run.
type Dispatcher func(f func())

// LoadFunc produces the listing of a directory. It runs on a worker goroutine.
type LoadFunc func(ctx context.Context, path string) lister.Result

// Refresher runs every listing request on its own goroutine and dispatches
// the result to the owner. Requests are never cancelled individually; the
// owner drops superseded results by generation.
type Refresher struct {
	load     LoadFunc
	dispatch Dispatcher
	deliver  func(Listing)

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewRefresher(ctx context.Context, load LoadFunc, dispatch Dispatcher, deliver func(Listing)) *Refresher {
	ctx, cancel := context.WithCancel(ctx)
	return &Refresher{
		load:     load,
		dispatch: dispatch,
		deliver:  deliver,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit starts listing req.Path. It is a no-op after Stop.
func (r *Refresher) Submit(req ListRequest) {
	r.Go(func(ctx context.Context) {
		result := r.load(ctx, req.Path)
		if ctx.Err() != nil {
			return
		}
		listing := Listing{Generation: req.Generation, Result: result}
		r.dispatch(func() {
			r.deliver(listing)
		})
	})
}

// Go runs task on a new goroutine tracked by the refresher.
// It returns false if the refresher is stopped.
func (r *Refresher) Go(task func(ctx context.Context)) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		task(r.ctx)
	}()
	return true
}

// Stop cancels running workers and rejects new ones without waiting.
// It is safe to call from a dispatched function.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// Close stops the refresher and waits for its workers to return.
// This method is idempotent.
func (r *Refresher) Close() {
	r.Stop()
	r.wg.Wait()
}
