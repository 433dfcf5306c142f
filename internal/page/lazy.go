package page

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hmsportal/internal/metrics"
)

// ErrStillLoading is returned by Lazy.Get when the load outlives the wait.
var ErrStillLoading = errors.New("page still loading")

const loadTimeout = 30 * time.Second

// Lazy builds a page on first use. Concurrent callers share one in-flight
// load; a successful result is kept, a failed one is forgotten so the next
// navigation retries.
type Lazy struct {
	name    string
	factory Factory
	metrics metrics.Recorder

	mu      sync.Mutex
	page    Page
	loading *load
}

type load struct {
	done chan struct{}
	page Page
	err  error
}

// NewLazy wraps factory. name labels load metrics.
func NewLazy(name string, factory Factory, rec metrics.Recorder) *Lazy {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Lazy{name: name, factory: factory, metrics: rec}
}

// Loaded reports whether the page has been built.
func (l *Lazy) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page != nil
}

// Get returns the page, starting a load if none is running. It waits at most
// wait for the load and returns ErrStillLoading after that; the load keeps
// running in the background.
func (l *Lazy) Get(ctx context.Context, wait time.Duration) (Page, error) {
	l.mu.Lock()
	if l.page != nil {
		p := l.page
		l.mu.Unlock()
		return p, nil
	}
	ld := l.loading
	if ld == nil {
		ld = &load{done: make(chan struct{})}
		l.loading = ld
		go l.run(ld)
	}
	l.mu.Unlock()

	if wait <= 0 {
		select {
		case <-ld.done:
			return ld.page, ld.err
		default:
			return nil, ErrStillLoading
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ld.done:
		return ld.page, ld.err
	case <-timer.C:
		return nil, ErrStillLoading
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lazy) run(ld *load) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	var p Page
	err := Guard(func() error {
		var err error
		p, err = l.factory(ctx)
		return err
	})
	if err == nil && p == nil {
		err = fmt.Errorf("load %s: factory returned no page", l.name)
	}
	if err != nil {
		p = nil
	}

	l.mu.Lock()
	if err == nil {
		l.page = p
	}
	l.loading = nil
	l.mu.Unlock()

	ld.page, ld.err = p, err
	close(ld.done)
	l.metrics.RecordPageLoad(l.name, err == nil, time.Since(start))
}
