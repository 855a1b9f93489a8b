package pipeline

import (
	"context"
	"errors"
	"fmt"

	"objectlens/internal/model"
)

type DetectorPhase int

const (
	DetectorIdle DetectorPhase = iota
	DetectorLoading
	DetectorReady
	DetectorFailed
)

func (p DetectorPhase) String() string {
	switch p {
	case DetectorIdle:
		return "idle"
	case DetectorLoading:
		return "loading"
	case DetectorReady:
		return "ready"
	case DetectorFailed:
		return "failed"
	default:
		return fmt.Sprintf("DetectorPhase(%d)", int(p))
	}
}

func (p DetectorPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DetectorState is the local detector's lifecycle. Reason is set only when Failed.
type DetectorState struct {
	Phase  DetectorPhase `json:"phase"`
	Reason string        `json:"reason,omitempty"`
}

// DetectorState returns the current detector state.
func (p *Pipeline) DetectorState() DetectorState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s DetectorState) {
	p.stateMu.Lock()
	prev := p.state
	p.state = s
	p.stateMu.Unlock()

	if prev.Phase != s.Phase {
		p.logger.Info("🧠 detector %s -> %s", prev.Phase, s.Phase)
	}
}

// Init loads the local detector. Until it succeeds every pass fails with
// model.ErrModelUnavailable.
func (p *Pipeline) Init(ctx context.Context) error {
	p.setState(DetectorState{Phase: DetectorLoading})

	if loader, ok := p.detector.(Loader); ok {
		if err := loader.Load(ctx); err != nil {
			if !errors.Is(err, model.ErrModelUnavailable) {
				err = fmt.Errorf("%w: %v", model.ErrModelUnavailable, err)
			}
			p.fail(err)
			return err
		}
	}

	p.setState(DetectorState{Phase: DetectorReady})
	return nil
}

// Reload re-initializes a failed detector.
func (p *Pipeline) Reload(ctx context.Context) error {
	return p.Init(ctx)
}

func (p *Pipeline) fail(err error) {
	p.setState(DetectorState{Phase: DetectorFailed, Reason: err.Error()})
	p.logger.Error("local detector unavailable: %v", err)
}
