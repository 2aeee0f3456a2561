package detector

import (
	"image"
	"sync"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
	block  chan struct{}
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Block makes Detect wait until the returned function is called.
func (m *MockDetector) Block() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame image.Image) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PointingLandmarks returns a right hand with the index finger extended and
// its tip at the normalized position (x, y). The other fingers are curled
// below the tip.
func PointingLandmarks(x, y float64) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: x, Y: y + 0.30}

	landmarks.Points[ThumbCMC] = Point3D{X: x + 0.04, Y: y + 0.26}
	landmarks.Points[ThumbMCP] = Point3D{X: x + 0.06, Y: y + 0.22}
	landmarks.Points[ThumbIP] = Point3D{X: x + 0.05, Y: y + 0.19}
	landmarks.Points[ThumbTip] = Point3D{X: x + 0.03, Y: y + 0.17}

	// Index finger extended up to the tip
	landmarks.Points[IndexMCP] = Point3D{X: x, Y: y + 0.18}
	landmarks.Points[IndexPIP] = Point3D{X: x, Y: y + 0.11}
	landmarks.Points[IndexDIP] = Point3D{X: x, Y: y + 0.05}
	landmarks.Points[IndexTip] = Point3D{X: x, Y: y}

	// Remaining fingers curled toward the palm
	for i, base := range []int{MiddleMCP, RingMCP, PinkyMCP} {
		dx := -0.03 * float64(i+1)
		landmarks.Points[base] = Point3D{X: x + dx, Y: y + 0.19, Z: -0.02}
		landmarks.Points[base+1] = Point3D{X: x + dx, Y: y + 0.17, Z: -0.05}
		landmarks.Points[base+2] = Point3D{X: x + dx, Y: y + 0.19, Z: -0.04}
		landmarks.Points[base+3] = Point3D{X: x + dx, Y: y + 0.21, Z: -0.02}
	}

	return landmarks
}
