package marker

import (
	"image"
	"sync"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	markers []Marker
	err     error
	calls   int
	mu      sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetMarkers sets the markers that will be returned by Detect.
func (m *MockDetector) SetMarkers(markers []Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = markers
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured markers or error.
func (m *MockDetector) Detect(img image.Image) ([]Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.markers, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SquareMarker returns an axis-aligned marker of the given side length centred on center.
// Corners are ordered clockwise from the top-left, as the ArUco detector reports them.
func SquareMarker(id int, center geometry.Point, side float64) Marker {
	h := side / 2
	return Marker{
		ID: id,
		Corners: geometry.Quad{
			{X: center.X - h, Y: center.Y - h},
			{X: center.X + h, Y: center.Y - h},
			{X: center.X + h, Y: center.Y + h},
			{X: center.X - h, Y: center.Y + h},
		},
	}
}

// AlignedMarkers returns one marker per corner of spec, centred on its anchor.
func AlignedMarkers(spec CornerSpec, side float64) []Marker {
	markers := make([]Marker, 0, len(spec.Corners))
	for _, id := range spec.IDs() {
		markers = append(markers, SquareMarker(id, spec.Corners[id].Anchor, side))
	}
	return markers
}
