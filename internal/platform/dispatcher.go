package platform

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher runs remote calls without the caller waiting for them.
//
// Local mutations are committed before Go is called; a failed remote call is
// handed to onErr and never rolled back against local state. Wait blocks
// until every dispatched call has returned and is used at shutdown and in
// tests.
type Dispatcher struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Go runs fn in the background. The call outlives ctx's cancellation but
// keeps its values.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(context.Context) error, onErr func(error)) {
	callCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := fn(callCtx); err != nil {
			d.logger.Warn("remote call failed", "call", name, "error", err)
			if onErr != nil {
				onErr(err)
			}
			return
		}
		d.logger.Debug("remote call done", "call", name)
	}()
}

// Wait blocks until all dispatched calls have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
