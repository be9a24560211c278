package gallery

import (
	"context"
	"sync"
)

// Loader runs manifest fetches in the background for one view. A result
// is delivered only if no newer Load or Detach happened since the fetch
// started; late results are dropped, the fetch itself is not aborted.
// Once Detach returns no callback is running or will run for earlier loads.
type Loader struct {
	client *Client

	// Refresh bypasses the manifest cache on every fetch.
	Refresh bool

	mu  sync.Mutex
	gen uint64
	wg  sync.WaitGroup

	// deliver is held across the staleness check and done; Detach takes it
	// too.
	deliver sync.Mutex
}

// NewLoader returns a loader using client.
func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

// Load starts fetching url and calls done with the outcome unless the
// loader moved on in the meantime. done runs on the fetch goroutine and
// may call Load, but not Detach.
func (l *Loader) Load(ctx context.Context, url string, done func([]Entry, error)) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	refresh := l.Refresh
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		entries, err := l.client.fetch(ctx, url, refresh)

		l.deliver.Lock()
		defer l.deliver.Unlock()
		l.mu.Lock()
		current := l.gen == gen
		l.mu.Unlock()
		if current {
			done(entries, err)
		}
	}()
}

// Detach marks every outstanding fetch as stale. It waits for a callback
// that is already running.
func (l *Loader) Detach() {
	l.deliver.Lock()
	defer l.deliver.Unlock()
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()
}

// Wait blocks until all started fetches have returned.
func (l *Loader) Wait() { l.wg.Wait() }
