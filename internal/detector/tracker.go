package detector

import (
	"image"
	"sync"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Result is the outcome of one asynchronous detection.
type Result struct {
	Seq   uint64
	Tip   geometry.Point // normalized 0..1
	Found bool
	Err   error
}

// Tracker runs a Detector off the caller's goroutine. At most one detection
// is in flight; frames submitted while it is busy are dropped. Only the most
// recent result is kept until it is read.
type Tracker struct {
	det Detector

	mu      sync.Mutex
	busy    bool
	closed  bool
	seq     uint64
	pending *Result
	wg      sync.WaitGroup
}

// NewTracker wraps d. The tracker owns d and closes it in Close.
func NewTracker(d Detector) *Tracker {
	return &Tracker{det: d}
}

// Submit starts a detection on img if the tracker is idle. It reports whether
// the frame was accepted.
func (t *Tracker) Submit(img image.Image) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.busy || img == nil {
		return false
	}
	t.busy = true
	t.seq++
	seq := t.seq

	t.wg.Add(1)
	go t.run(seq, img)
	return true
}

func (t *Tracker) run(seq uint64, img image.Image) {
	defer t.wg.Done()

	res := Result{Seq: seq}
	hands, err := t.det.Detect(img)
	if err != nil {
		res.Err = err
	} else {
		res.Tip, res.Found = IndexFingertip(hands)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	if t.closed {
		return
	}
	t.pending = &res
}

// Latest returns the newest unread result and clears it.
func (t *Tracker) Latest() (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return Result{}, false
	}
	res := *t.pending
	t.pending = nil
	return res, true
}

// Busy reports whether a detection is in flight.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Wait blocks until the in-flight detection, if any, has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close stops accepting frames, waits for the in-flight detection and closes
// the underlying detector. It is safe to call more than once.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.pending = nil
	t.mu.Unlock()

	t.wg.Wait()
	return t.det.Close()
}
