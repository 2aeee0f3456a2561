package marker

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Detector finds fiducial markers in an image.
type Detector interface {
	// Detect returns the markers found in img. Markers without exactly four
	// corners are not returned.
	Detect(img image.Image) ([]Marker, error)

	// Close releases any resources held by the detector.
	Close() error
}

// ArucoDetector implements Detector with the OpenCV ArUco module.
type ArucoDetector struct {
	aruco gocv.ArucoDetector
	mu    sync.Mutex
}

// NewArucoDetector creates a detector for the given predefined dictionary.
// The printed posters use gocv.ArucoDictArucoOriginal.
func NewArucoDetector(dict gocv.ArucoDictionaryCode) *ArucoDetector {
	params := gocv.NewArucoDetectorParameters()
	return &ArucoDetector{
		aruco: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict), params),
	}
}

// Detect converts img to an OpenCV matrix and runs marker detection on it.
func (d *ArucoDetector) Detect(img image.Image) ([]Marker, error) {
	if img == nil {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	corners, ids, _ := d.aruco.DetectMarkers(mat)
	d.mu.Unlock()

	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) != 4 {
			continue
		}

		m := Marker{ID: id}
		for j, c := range corners[i] {
			m.Corners[j] = geometry.Point{X: float64(c.X), Y: float64(c.Y)}
		}
		markers = append(markers, m)
	}

	return markers, nil
}

// Close releases the underlying OpenCV detector.
func (d *ArucoDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aruco.Close()
	return nil
}
