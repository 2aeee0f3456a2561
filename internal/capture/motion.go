package capture

import (
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MotionDetector detects motion between consecutive video frames
// using frame differencing with Gaussian blur for noise reduction.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// NewMotionDetector creates a new MotionDetector with the given threshold.
// The threshold is the percentage of pixels that must change to detect motion.
// For example, a threshold of 1.0 means 1% of pixels must change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold:   threshold,
		prevGray:    gocv.NewMat(),
		initialized: false,
	}
}

// Detect analyzes a frame for motion compared to the previous frame.
// Returns whether motion was detected and the percentage of pixels that changed.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur (21x21) to reduce noise
// 3. If first frame (or the size changed), store as baseline and return false
// 4. Calculate absolute difference with previous frame
// 5. Threshold the difference (threshold=25)
// 6. Count non-zero pixels / total pixels = changePercent
// 7. Return changePercent > threshold
func (m *MotionDetector) Detect(frame *Frame) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !frame.Ready() {
		return false, 0
	}

	rgb, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return false, 0
	}
	defer rgb.Close()

	// Convert to grayscale
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	// Apply Gaussian blur to reduce noise
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	// If first frame or the resolution changed, store as baseline
	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	// Calculate absolute difference
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	// Apply binary threshold
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	// Count non-zero pixels
	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()

	// Calculate change percentage
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	// Update previous frame
	blurred.CopyTo(&m.prevGray)

	// Return detection result
	return changePercent > m.threshold, changePercent
}

// Reset clears the motion detector state, allowing it to be reused
// with a new baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold sets the motion detection threshold.
// The threshold is the percentage of pixels that must change to detect motion.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Pacer default timing.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while someone is moving in front of the poster.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Pacer switches between an idle and an active frame rate based on motion
// between consecutive frames.
type Pacer struct {
	motion      *MotionDetector
	idleFPS     int
	activeFPS   int
	idleTimeout time.Duration

	mu         sync.Mutex
	active     bool
	lastMotion time.Time
}

// NewPacer creates a Pacer with the default rates around the given motion detector.
func NewPacer(motion *MotionDetector) *Pacer {
	return &Pacer{
		motion:      motion,
		idleFPS:     IdleFPS,
		activeFPS:   ActiveFPS,
		idleTimeout: IdleTimeout,
	}
}

// SetRates overrides the idle and active frame rates. Non-positive values are ignored.
func (p *Pacer) SetRates(idleFPS, activeFPS int, idleTimeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idleFPS > 0 {
		p.idleFPS = idleFPS
	}
	if activeFPS > 0 {
		p.activeFPS = activeFPS
	}
	if idleTimeout > 0 {
		p.idleTimeout = idleTimeout
	}
}

// Observe feeds one frame and returns the frame rate to use from now on and
// whether it changed.
func (p *Pacer) Observe(frame *Frame, now time.Time) (fps int, changed bool) {
	moved, _ := p.motion.Detect(frame)

	p.mu.Lock()
	defer p.mu.Unlock()

	if moved {
		p.lastMotion = now
		if !p.active {
			p.active = true
			log.Println("Switched to active mode")
			return p.activeFPS, true
		}
		return p.activeFPS, false
	}

	if p.active && now.Sub(p.lastMotion) > p.idleTimeout {
		p.active = false
		log.Println("Switched to idle mode")
		return p.idleFPS, true
	}

	if p.active {
		return p.activeFPS, false
	}
	return p.idleFPS, false
}

// FPS returns the current frame rate.
func (p *Pacer) FPS() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return p.activeFPS
	}
	return p.idleFPS
}

// Active reports whether motion was seen within the idle timeout.
func (p *Pacer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close releases the motion detector.
func (p *Pacer) Close() {
	p.motion.Close()
}
