// Package marker tracks the fiducial markers printed on the poster and decides
// whether the poster is aligned with the camera.
package marker

import (
	"sort"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Alignment defaults.
const (
	// DefaultBuffer is the per-axis tolerance in pixels between a marker
	// centroid and its expected anchor.
	DefaultBuffer = 170
	// DefaultMinMarkerSize is the average marker side length in pixels below
	// which the poster is considered too far from the camera.
	DefaultMinMarkerSize = 60
)

// Marker is a fiducial marker detected in a single frame.
type Marker struct {
	ID      int           `json:"id"`
	Corners geometry.Quad `json:"corners"`
}

// Slot is the poster corner a marker sits in.
type Slot int

const (
	TopLeft Slot = iota
	TopRight
	BottomRight
	BottomLeft
)

// Corner describes where a corner marker is expected in the frame.
type Corner struct {
	// Anchor is the expected marker centroid in frame pixels.
	Anchor geometry.Point `json:"anchor"`
	// Slot is the poster corner the marker occupies.
	Slot Slot `json:"slot"`
	// Inner is the index of the marker corner that touches the poster area.
	Inner int `json:"inner"`
}

// CornerSpec maps expected marker ids to their corner placement.
type CornerSpec struct {
	Buffer  float64        `json:"buffer"`
	Corners map[int]Corner `json:"corners"`
}

// DefaultCornerSpec returns the placement of the four markers on the printed poster.
func DefaultCornerSpec() CornerSpec {
	return CornerSpec{
		Buffer: DefaultBuffer,
		Corners: map[int]Corner{
			2:  {Anchor: geometry.Point{X: 200, Y: 50}, Slot: TopLeft, Inner: 2},
			13: {Anchor: geometry.Point{X: 480, Y: 50}, Slot: TopRight, Inner: 3},
			3:  {Anchor: geometry.Point{X: 480, Y: 450}, Slot: BottomRight, Inner: 0},
			6:  {Anchor: geometry.Point{X: 190, Y: 450}, Slot: BottomLeft, Inner: 1},
		},
	}
}

// Matches reports whether m sits within Buffer of the anchor expected for its id.
// Markers with unknown ids never match.
func (s CornerSpec) Matches(m Marker) bool {
	expected, ok := s.Corners[m.ID]
	if !ok {
		return false
	}

	c := m.Corners.Center()
	return abs(c.X-expected.Anchor.X) < s.Buffer && abs(c.Y-expected.Anchor.Y) < s.Buffer
}

// State is the alignment state carried across frames by the caller.
type State struct {
	HasEverAligned   bool  `json:"has_ever_aligned"`
	CurrentlyVisible bool  `json:"currently_visible"`
	MatchedIDs       []int `json:"matched_ids"`
}

// Result is the outcome of one Update.
type Result struct {
	State       State
	TooFar      bool
	AverageSize float64
}

// Tracker classifies marker detections against a CornerSpec.
// It holds configuration only; alignment state is passed in and returned.
type Tracker struct {
	Spec          CornerSpec
	MinMarkerSize float64
}

// NewTracker creates a Tracker. A non-positive minSize disables the too-far gate.
func NewTracker(spec CornerSpec, minSize float64) *Tracker {
	return &Tracker{Spec: spec, MinMarkerSize: minSize}
}

// Update computes the next alignment state from prev and the markers of one frame.
//
// When the markers are too small on average the poster is too far away: the
// result carries TooFar and prev unchanged, and the caller should retry on
// the next frame.
//
// The aligned latch is set once every expected corner matches in the same
// frame and is never cleared here. Before it is set all corners must match to
// be visible; afterwards one corner may be missing.
func (t *Tracker) Update(prev State, markers []Marker) Result {
	size := AverageSize(markers)
	if len(markers) > 0 && size < t.MinMarkerSize {
		return Result{State: prev, TooFar: true, AverageSize: size}
	}

	matched := t.matchedIDs(markers)
	required := len(t.Spec.Corners)

	next := State{
		HasEverAligned: prev.HasEverAligned,
		MatchedIDs:     matched,
	}
	if !next.HasEverAligned && required > 0 && len(matched) == required {
		next.HasEverAligned = true
	}

	if next.HasEverAligned {
		next.CurrentlyVisible = required > 0 && len(matched) >= required-1
	} else {
		next.CurrentlyVisible = required > 0 && len(matched) == required
	}

	return Result{State: next, AverageSize: size}
}

// matchedIDs returns the sorted, de-duplicated ids of markers in their corners.
func (t *Tracker) matchedIDs(markers []Marker) []int {
	seen := make(map[int]bool, len(markers))
	ids := make([]int, 0, len(markers))
	for _, m := range markers {
		if seen[m.ID] || !t.Spec.Matches(m) {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Ints(ids)
	return ids
}

// AverageSize returns the mean estimated side length of markers in pixels.
func AverageSize(markers []Marker) float64 {
	quads := make([]geometry.Quad, len(markers))
	for i, m := range markers {
		quads[i] = m.Corners
	}
	return geometry.AverageQuadSize(quads)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// IDs returns the expected marker ids in ascending order.
func (s CornerSpec) IDs() []int {
	ids := make([]int, 0, len(s.Corners))
	for id := range s.Corners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
