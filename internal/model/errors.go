package model

import "errors"

// Collaborator and controller failures. Adapters wrap the underlying cause
// with one of these so callers can classify it with errors.Is.
var (
	// ErrModelUnavailable means the local detector could not be initialized.
	// Every pass is refused until the detector is reloaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrDetectionFailed is a per-pass detector failure (corrupt frame, timeout).
	ErrDetectionFailed = errors.New("detection failed")
	// ErrNetwork is a transport failure or timeout talking to the enrichment backend.
	ErrNetwork = errors.New("enrichment network error")
	// ErrParse means the enrichment response did not have the expected shape.
	ErrParse = errors.New("enrichment parse error")
	// ErrMediaAccess means the live frame source could not be opened or was lost.
	ErrMediaAccess = errors.New("media access error")

	ErrInvalidFrame   = errors.New("invalid frame")
	ErrAlreadyRunning = errors.New("real-time loop already running")
	ErrSourceBusy     = errors.New("frame source already in use")
)

// IsFatal reports whether err must stop the real-time loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrMediaAccess)
}

// IsRecoverable reports whether err only degrades the current pass.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDetectionFailed) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrParse)
}

// ErrInvalidThreshold is returned for a confidence threshold outside [0,1].
var ErrInvalidThreshold = errors.New("confidence threshold must be within [0,1]")
