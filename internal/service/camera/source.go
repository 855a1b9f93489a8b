// Package camera provides live frame sources.
package camera

import "objectlens/internal/model"

// offer delivers f, replacing an undelivered older frame. Only the latest
// frame is ever waiting. ch must have capacity 1 and a single sender.
func offer(ch chan model.Frame, f model.Frame) (replaced bool) {
	select {
	case ch <- f:
		return false
	default:
	}
	select {
	case <-ch:
		replaced = true
	default:
	}
	select {
	case ch <- f:
	default:
	}
	return replaced
}
