package detector

import "image"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame image.Image) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the MediaPipe landmark model (0 = lite, 1 = full).
	ModelComplexity int

	// IdleTimeout shuts the MediaPipe process down after this long without frames.
	IdleTimeoutSec int
}

// DefaultConfig returns a Config tuned for a single pointing hand at kiosk distance.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.3,
		MinTrackingConf: 0.3,
		ModelComplexity: 0,
		IdleTimeoutSec:  30,
	}
}
