package pointing

import (
	"fmt"
	"time"

	"github.com/ayusman/posterpoint/internal/marker"
)

// Strategy selects where fingertip samples come from.
type Strategy string

const (
	// StrategyPrimary uses only the landmark tracker.
	StrategyPrimary Strategy = "primary"
	// StrategyPrimaryWithFallback uses the landmark tracker and switches to
	// skin segmentation after repeated misses.
	StrategyPrimaryWithFallback Strategy = "primary-with-fallback"
	// StrategyFallback uses only skin segmentation.
	StrategyFallback Strategy = "fallback"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyPrimary, StrategyPrimaryWithFallback, StrategyFallback:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

func (s Strategy) usesPrimary() bool  { return s != StrategyFallback }
func (s Strategy) usesFallback() bool { return s != StrategyPrimary }

// Mapping selects how a fingertip in frame coordinates reaches the zone canvas.
type Mapping string

const (
	// MapFrame scales the whole frame onto the reference canvas.
	MapFrame Mapping = "frame"
	// MapPoster projects through the homography of the registered poster
	// corners, falling back to MapFrame while fewer than four are known.
	MapPoster Mapping = "poster"
)

// ParseMapping validates a mapping name.
func ParseMapping(s string) (Mapping, error) {
	switch m := Mapping(s); m {
	case MapFrame, MapPoster:
		return m, nil
	}
	return "", fmt.Errorf("unknown mapping %q", s)
}

// Defaults for Options.
const (
	DefaultFallbackAfter = 3
	DefaultDwell         = time.Second
	DefaultFrameInterval = 200 * time.Millisecond
)

// Options tunes the detector.
type Options struct {
	Strategy Strategy

	// FallbackAfter is the number of consecutive primary misses tolerated
	// before skin segmentation takes over.
	FallbackAfter int

	// Dwell is how long a zone must stay pointed at before it is confirmed.
	// Zero confirms on the first observation.
	Dwell time.Duration

	Mapping       Mapping
	Corners       marker.CornerSpec
	MinMarkerSize float64

	// FrameInterval is the Run loop period when no pacer is set.
	FrameInterval time.Duration

	// Debug logs marker detections every frame.
	Debug bool
}

// DefaultOptions returns the kiosk defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:      StrategyPrimaryWithFallback,
		FallbackAfter: DefaultFallbackAfter,
		Dwell:         DefaultDwell,
		Mapping:       MapFrame,
		Corners:       marker.DefaultCornerSpec(),
		MinMarkerSize: marker.DefaultMinMarkerSize,
		FrameInterval: DefaultFrameInterval,
	}
}

// withDefaults fills the fields whose zero value is not meaningful. A zero
// Dwell, FallbackAfter or MinMarkerSize is honored as given.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.FallbackAfter < 0 {
		o.FallbackAfter = 0
	}
	if o.Dwell < 0 {
		o.Dwell = 0
	}
	if o.Mapping == "" {
		o.Mapping = d.Mapping
	}
	if len(o.Corners.Corners) == 0 {
		o.Corners = d.Corners
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = d.FrameInterval
	}
	return o
}
