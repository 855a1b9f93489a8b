package ai

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// cameraState holds the previous frame of one camera.
type cameraState struct {
	previous    gocv.Mat
	hasPrevious bool
	mu          sync.Mutex
}

// MotionGate makes a frame eligible for detection only when enough pixels
// changed since the previous frame of the same camera.
type MotionGate struct {
	threshold int
	logger    *logger.Logger

	statesMu sync.RWMutex
	states   map[string]*cameraState
}

func NewMotionGate(threshold int, log *logger.Logger) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		logger:    log.WithFields(logger.Fields{"component": "motion"}),
		states:    make(map[string]*cameraState),
	}
}

// Eligible reports whether more than threshold pixels changed. The first frame
// of a camera only primes the gate.
func (g *MotionGate) Eligible(frame model.Frame) (bool, error) {
	state := g.state(frame.Camera)
	state.mu.Lock()
	defer state.mu.Unlock()

	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return false, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return false, fmt.Errorf("decoded image is empty")
	}

	if !state.hasPrevious || state.previous.Cols() != mat.Cols() || state.previous.Rows() != mat.Rows() {
		if state.hasPrevious {
			state.previous.Close()
		}
		state.previous = mat.Clone()
		state.hasPrevious = true
		return false, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(state.previous, mat, &diff); err != nil {
		return false, fmt.Errorf("failed to compute absolute difference: %v", err)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray); err != nil {
		return false, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, 30, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)

	state.previous.Close()
	state.previous = mat.Clone()

	if changed > g.threshold {
		g.logger.Debug("motion on %s: %d pixels changed", frame.Camera, changed)
		return true, nil
	}
	return false, nil
}

func (g *MotionGate) state(camera string) *cameraState {
	g.statesMu.RLock()
	state, ok := g.states[camera]
	g.statesMu.RUnlock()
	if ok {
		return state
	}

	g.statesMu.Lock()
	defer g.statesMu.Unlock()
	if state, ok := g.states[camera]; ok {
		return state
	}
	state = &cameraState{}
	g.states[camera] = state
	return state
}

// Close releases the stored frames.
func (g *MotionGate) Close() error {
	g.statesMu.Lock()
	defer g.statesMu.Unlock()
	for camera, state := range g.states {
		state.mu.Lock()
		if state.hasPrevious {
			state.previous.Close()
		}
		state.mu.Unlock()
		delete(g.states, camera)
	}
	return nil
}
