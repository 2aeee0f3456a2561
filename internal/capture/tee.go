package capture

import "sync"

// Tee is a Camera that remembers the last frame it delivered, so a preview
// can show what the pipeline sees without opening the device twice.
type Tee struct {
	Camera

	mu   sync.RWMutex
	last *Frame
}

// NewTee wraps cam.
func NewTee(cam Camera) *Tee {
	return &Tee{Camera: cam}
}

// ReadFrame reads from the wrapped camera and keeps ready frames.
func (t *Tee) ReadFrame() (*Frame, error) {
	f, err := t.Camera.ReadFrame()
	if err == nil && f.Ready() {
		t.mu.Lock()
		t.last = f
		t.mu.Unlock()
	}
	return f, err
}

// Close closes the wrapped camera and forgets the last frame.
func (t *Tee) Close() error {
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
	return t.Camera.Close()
}

// LatestFrame returns the most recent frame, or nil before the first one.
// Callers must not modify it.
func (t *Tee) LatestFrame() *Frame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
