// Package realtime drives detection passes over a live frame source.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
)

// ErrNotIdle is returned by Start while the loop is in the Error state.
var ErrNotIdle = errors.New("real-time loop failed, stop it before starting again")

type LoopState int

const (
	Idle LoopState = iota
	Running
	Error
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

func (s LoopState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameSource is a live stream of frames. The channel returned by Start must be
// closed only when the source is lost; Stop releases the device.
type FrameSource interface {
	Start(ctx context.Context) (<-chan model.Frame, error)
	Stop() error
}

// Runner executes detection passes. *pipeline.Pipeline implements it.
type Runner interface {
	Begin() uint64
	Run(ctx context.Context, g uint64, frame model.Frame) (*pipeline.Result, error)
	Commit(g uint64, res *pipeline.Result) bool
	Invalidate()
}

// FrameGate decides whether a frame is worth a detection pass, e.g. because it
// shows motion. It sees every frame the source delivers.
type FrameGate interface {
	Eligible(frame model.Frame) (bool, error)
}

type Options struct {
	// Interval is the minimum spacing between eligible frames. 0 disables throttling.
	Interval time.Duration
	// Gate, when set, filters frames before throttling.
	Gate FrameGate
	// OnFatal is called once, from the loop goroutine, when the loop enters Error.
	OnFatal func(error)
}

type Stats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Discarded uint64 `json:"discarded"`
	Failed    uint64 `json:"failed"`
}

type Status struct {
	State     LoopState `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	Stats     Stats     `json:"stats"`
}

// Controller owns one frame source at a time and runs at most one pass against
// it. Frames that arrive while a pass is in flight are not queued: only the most
// recent one is kept and runs when the pass finishes.
type Controller struct {
	runner Runner
	opts   Options
	logger *logger.Logger

	mu      sync.Mutex
	state   LoopState
	lastErr error
	source  FrameSource
	halt    *halt
	done    chan struct{}

	processed *atomic.Uint64
	dropped   *atomic.Uint64
	discarded *atomic.Uint64
	failed    *atomic.Uint64
}

func NewController(runner Runner, opts Options, log *logger.Logger) *Controller {
	return &Controller{
		runner:    runner,
		opts:      opts,
		logger:    log.WithFields(logger.Fields{"component": "realtime"}),
		processed: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
		discarded: atomic.NewUint64(0),
		failed:    atomic.NewUint64(0),
	}
}

// Start acquires source and begins scheduling passes. It fails with
// model.ErrAlreadyRunning while running and ErrNotIdle after a fatal error. A
// source owned by someone else is rejected with model.ErrSourceBusy and leaves
// the state unchanged; any other source failure is fatal.
func (c *Controller) Start(source FrameSource) error {
	c.mu.Lock()
	switch c.state {
	case Running:
		c.mu.Unlock()
		return model.ErrAlreadyRunning
	case Error:
		c.mu.Unlock()
		return ErrNotIdle
	}

	c.processed.Store(0)
	c.dropped.Store(0)
	c.discarded.Store(0)
	c.failed.Store(0)
	c.lastErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := source.Start(ctx)
	if errors.Is(err, model.ErrSourceBusy) {
		cancel()
		c.mu.Unlock()
		return err
	}
	if err != nil {
		cancel()
		if !errors.Is(err, model.ErrMediaAccess) {
			err = fmt.Errorf("%w: %v", model.ErrMediaAccess, err)
		}
		c.state = Error
		c.lastErr = err
		c.mu.Unlock()

		c.logger.Error("❌ failed to start frame source: %v", err)
		if c.opts.OnFatal != nil {
			c.opts.OnFatal(err)
		}
		return err
	}

	c.state = Running
	c.source = source
	c.halt = &halt{cancel: cancel}
	c.done = make(chan struct{})
	go c.loop(ctx, frames, c.halt, c.done)
	c.mu.Unlock()

	c.logger.Info("▶️ real-time loop started")
	return nil
}

// Stop cancels the loop, discards any in-flight pass and releases the frame
// source. It returns once no pass is running. Stopping an idle controller is a
// no-op; stopping after a fatal error returns it to Idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != Running {
		c.state = Idle
		c.mu.Unlock()
		return nil
	}
	c.state = Idle
	h, source, done := c.halt, c.source, c.done
	c.source, c.halt = nil, nil
	c.mu.Unlock()

	h.stop(c.runner.Invalidate)
	<-done

	c.logger.Info("⏹️ real-time loop stopped")
	if err := source.Stop(); err != nil {
		return fmt.Errorf("failed to release frame source: %w", err)
	}
	return nil
}

func (c *Controller) State() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Stats() Stats {
	return Stats{
		Processed: c.processed.Load(),
		Dropped:   c.dropped.Load(),
		Discarded: c.discarded.Load(),
		Failed:    c.failed.Load(),
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	s := Status{State: c.state}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()

	s.Stats = c.Stats()
	return s
}

// fail moves a running loop to Error and releases the source. It is a no-op if
// Stop got there first.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	c.state = Error
	c.lastErr = err
	h, source := c.halt, c.source
	c.source, c.halt = nil, nil
	c.mu.Unlock()

	h.stop(c.runner.Invalidate)
	if stopErr := source.Stop(); stopErr != nil {
		c.logger.Warning("failed to release frame source: %v", stopErr)
	}

	c.logger.Error("❌ real-time loop stopped: %v", err)
	if c.opts.OnFatal != nil {
		c.opts.OnFatal(err)
	}
}
