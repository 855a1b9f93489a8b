package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"objectlens/internal/model"
	"objectlens/internal/pipeline"
)

type outcome struct {
	generation uint64
	result     *pipeline.Result
	err        error
}

// halt serializes starting a pass against stopping the loop. Once stopped, no
// new generation is begun.
type halt struct {
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func (h *halt) begin(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		fn()
	}
}

// stop invalidates in-flight passes before cancelling them, so a finished pass
// still waiting to be committed is discarded.
func (h *halt) stop(invalidate func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	invalidate()
	h.cancel()
}

func (c *Controller) loop(ctx context.Context, frames <-chan model.Frame, h *halt, done chan<- struct{}) {
	var wg sync.WaitGroup
	defer close(done)
	defer wg.Wait()

	limit := rate.Inf
	if c.opts.Interval > 0 {
		limit = rate.Every(c.opts.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	// at most one pass in flight, so one slot is enough
	results := make(chan outcome, 1)
	busy := false
	// the most recent frame that arrived while busy; it runs next
	var pending *model.Frame

	start := func(frame model.Frame) {
		h.begin(func() {
			busy = true
			g := c.runner.Begin()
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := c.runner.Run(ctx, g, frame)
				results <- outcome{generation: g, result: res, err: err}
			}()
		})
	}

	for {
		select {
		case <-ctx.Done():
			return

		case out := <-results:
			busy = false
			if !c.handle(out) {
				return
			}
			if pending != nil {
				frame := *pending
				pending = nil
				start(frame)
			}

		case frame, ok := <-frames:
			if !ok {
				c.fail(fmt.Errorf("%w: frame source closed", model.ErrMediaAccess))
				return
			}
			// the gate sees every frame so it can compare consecutive ones
			if !c.eligible(frame) || !limiter.Allow() {
				c.dropped.Inc()
				continue
			}
			if busy {
				if pending != nil {
					c.dropped.Inc()
				}
				pending = &frame
				continue
			}
			start(frame)
		}
	}
}

func (c *Controller) eligible(frame model.Frame) bool {
	if c.opts.Gate == nil {
		return true
	}
	ok, err := c.opts.Gate.Eligible(frame)
	if err != nil {
		c.logger.Debug("frame gate failed, treating frame as eligible: %v", err)
		return true
	}
	return ok
}

// handle commits or classifies a finished pass. It returns false when the loop must exit.
func (c *Controller) handle(out outcome) bool {
	switch err := out.err; {
	case err == nil:
		if c.runner.Commit(out.generation, out.result) {
			c.processed.Inc()
		} else {
			c.discarded.Inc()
		}
	case errors.Is(err, pipeline.ErrStale), errors.Is(err, context.Canceled):
		c.discarded.Inc()
	case model.IsFatal(err):
		c.fail(err)
		return false
	default:
		c.failed.Inc()
		c.logger.Debug("frame skipped: %v", err)
	}
	return true
}
