package parallel

import (
	"context"
	"sync"
	"time"

	"github.com/appdex/appdex/pkg/safe"
)

// Group runs a set of functions concurrently, optionally bounded by a
// maximum number of simultaneously running goroutines.
type Group struct {
	ctx    context.Context
	cancel func()

	wg  sync.WaitGroup
	sem chan struct{}

	errOnce sync.Once
	err     error
}

func GoGroup(ctx context.Context, opts ...RunOption) *Group {
	rOpts := &runOptions{}
	for _, opt := range opts {
		opt(rOpts)
	}
	g := &Group{}
	if rOpts.timeout > 0 {
		g.ctx, g.cancel = context.WithTimeout(ctx, rOpts.timeout)
	} else {
		g.ctx, g.cancel = context.WithCancel(ctx)
	}
	if rOpts.maxWorkers > 0 {
		g.sem = make(chan struct{}, rOpts.maxWorkers)
	}
	return g
}

// Wait blocks until all function calls from the Go method have returned,
// then returns the first non-nil error (if any) from them.
func (g *Group) Wait() error {
	g.wg.Wait()
	if g.cancel != nil {
		g.cancel()
	}
	return g.err
}

// Go calls the given function in a new goroutine, blocking first if the
// worker bound has been reached.
//
// The first call to return a non-nil error cancels the group; its error
// will be returned by Wait.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	safe.Go(func() {
		defer g.wg.Done()
		if g.sem != nil {
			select {
			case g.sem <- struct{}{}:
				defer func() { <-g.sem }()
			case <-g.ctx.Done():
				return
			}
		}
		if err := fn(g.ctx); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				if g.cancel != nil {
					g.cancel()
				}
			})
		}
	})
}

// RunOption configures GoGroup.
type RunOption func(opts *runOptions)

type runOptions struct {
	timeout    time.Duration
	maxWorkers int
}

// WithTimeout bounds the total run time.
func WithTimeout(timeout time.Duration) RunOption {
	return func(opts *runOptions) {
		opts.timeout = timeout
	}
}

// WithMaxWorkers bounds the number of concurrently running functions.
func WithMaxWorkers(n int) RunOption {
	return func(opts *runOptions) {
		opts.maxWorkers = n
	}
}
