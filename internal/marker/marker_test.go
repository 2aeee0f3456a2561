package marker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/posterpoint/internal/geometry"
)

func newTestTracker() *Tracker {
	return NewTracker(DefaultCornerSpec(), DefaultMinMarkerSize)
}

// subset returns the aligned markers whose ids are listed.
func subset(ids ...int) []Marker {
	spec := DefaultCornerSpec()
	markers := make([]Marker, 0, len(ids))
	for _, id := range ids {
		markers = append(markers, SquareMarker(id, spec.Corners[id].Anchor, 80))
	}
	return markers
}

func TestTracker_AllCornersAlign(t *testing.T) {
	tr := newTestTracker()

	res := tr.Update(State{}, AlignedMarkers(tr.Spec, 80))

	if res.TooFar {
		t.Fatal("expected markers of size 80 not to be too far")
	}
	if !res.State.HasEverAligned {
		t.Error("expected latch to be set after 4/4 match")
	}
	if !res.State.CurrentlyVisible {
		t.Error("expected poster to be visible after 4/4 match")
	}
	if diff := cmp.Diff([]int{2, 3, 6, 13}, res.State.MatchedIDs); diff != "" {
		t.Errorf("MatchedIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_Hysteresis(t *testing.T) {
	tests := []struct {
		name        string
		aligned     bool
		markers     []Marker
		wantVisible bool
	}{
		{name: "aligned, 3 of 4", aligned: true, markers: subset(2, 13, 6), wantVisible: true},
		{name: "aligned, 2 of 4", aligned: true, markers: subset(2, 13), wantVisible: false},
		{name: "not aligned, 3 of 4", aligned: false, markers: subset(2, 13, 6), wantVisible: false},
		{name: "not aligned, 4 of 4", aligned: false, markers: subset(2, 13, 6, 3), wantVisible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			res := tr.Update(State{HasEverAligned: tt.aligned}, tt.markers)
			if res.State.CurrentlyVisible != tt.wantVisible {
				t.Errorf("CurrentlyVisible = %v, want %v", res.State.CurrentlyVisible, tt.wantVisible)
			}
		})
	}
}

func TestTracker_LatchIsMonotonic(t *testing.T) {
	tr := newTestTracker()
	state := tr.Update(State{}, AlignedMarkers(tr.Spec, 80)).State

	inputs := [][]Marker{
		nil,
		subset(2),
		{SquareMarker(99, geometry.Point{X: 300, Y: 300}, 80)},
		{SquareMarker(2, geometry.Point{X: 900, Y: 900}, 80)},
		subset(2, 13, 6),
		subset(2, 13, 6, 3),
		{SquareMarker(2, geometry.Point{X: 200, Y: 50}, 10)},
	}

	for i, markers := range inputs {
		state = tr.Update(state, markers).State
		if !state.HasEverAligned {
			t.Fatalf("input %d cleared the aligned latch", i)
		}
	}
}

func TestTracker_ThreeOfFourDoesNotLatch(t *testing.T) {
	tr := newTestTracker()
	res := tr.Update(State{}, subset(2, 13, 3))
	if res.State.HasEverAligned {
		t.Error("latch must require all four corners in one frame")
	}
}

func TestTracker_TooFar(t *testing.T) {
	tr := newTestTracker()
	prev := State{HasEverAligned: true, CurrentlyVisible: true, MatchedIDs: []int{2, 3, 6, 13}}

	// Every marker sits exactly on its anchor but is only 40px wide.
	res := tr.Update(prev, AlignedMarkers(tr.Spec, 40))

	if !res.TooFar {
		t.Fatal("expected too far for average size 40 against minimum 60")
	}
	if res.AverageSize != 40 {
		t.Errorf("AverageSize = %f, want 40", res.AverageSize)
	}
	if diff := cmp.Diff(prev, res.State); diff != "" {
		t.Errorf("state must not change when too far (-want +got):\n%s", diff)
	}
}

func TestTracker_NoMarkers(t *testing.T) {
	tr := newTestTracker()
	res := tr.Update(State{}, nil)

	if res.TooFar {
		t.Error("no markers must not be reported as too far")
	}
	if res.State.CurrentlyVisible {
		t.Error("no markers must not be visible")
	}
	if len(res.State.MatchedIDs) != 0 {
		t.Errorf("MatchedIDs = %v, want empty", res.State.MatchedIDs)
	}
}

func TestTracker_IgnoresUnknownAndMisplaced(t *testing.T) {
	tr := newTestTracker()
	markers := append(subset(2, 13, 6),
		SquareMarker(42, geometry.Point{X: 480, Y: 450}, 80),      // unknown id at a corner
		SquareMarker(3, geometry.Point{X: 480 + 170, Y: 450}, 80), // exactly Buffer away
		SquareMarker(2, geometry.Point{X: 210, Y: 60}, 80),        // duplicate id
	)

	res := tr.Update(State{}, markers)
	if diff := cmp.Diff([]int{2, 6, 13}, res.State.MatchedIDs); diff != "" {
		t.Errorf("MatchedIDs mismatch (-want +got):\n%s", diff)
	}
	if res.State.CurrentlyVisible {
		t.Error("expected not visible with 3 of 4 before alignment")
	}
}

func TestCornerSpec_Register(t *testing.T) {
	spec := DefaultCornerSpec()
	ref := geometry.Size{Width: 1517, Height: 2200}

	t.Run("four corners", func(t *testing.T) {
		reg, ok := spec.Register(AlignedMarkers(spec, 80), ref)
		if !ok {
			t.Fatal("expected registration with four markers")
		}

		wantCorners := []geometry.Point{{X: 240, Y: 90}, {X: 440, Y: 90}, {X: 440, Y: 410}, {X: 230, Y: 410}}
		if diff := cmp.Diff(wantCorners, reg.Corners); diff != "" {
			t.Errorf("Corners mismatch (-want +got):\n%s", diff)
		}
		if reg.Center != (geometry.Point{X: 335, Y: 250}) {
			t.Errorf("Center = %v, want (335,250)", reg.Center)
		}
		if reg.Homography == nil {
			t.Fatal("expected homography with four corners")
		}
		if got := reg.Homography.Apply(geometry.Point{X: 440, Y: 410}); geometry.Distance(got, geometry.Point{X: 1517, Y: 2200}) > 1e-6 {
			t.Errorf("bottom-right maps to %v, want (1517,2200)", got)
		}
	})

	t.Run("three corners", func(t *testing.T) {
		reg, ok := spec.Register(subset(2, 13, 6), ref)
		if !ok {
			t.Fatal("expected registration with three markers")
		}
		if reg.Homography != nil {
			t.Error("homography needs four corners")
		}
		if len(reg.Corners) != 3 {
			t.Errorf("len(Corners) = %d, want 3", len(reg.Corners))
		}
	})

	t.Run("two corners", func(t *testing.T) {
		if _, ok := spec.Register(subset(2, 13), ref); ok {
			t.Error("expected no registration with two markers")
		}
	})
}

func TestMockDetector(t *testing.T) {
	mock := NewMockDetector()
	mock.SetMarkers(subset(2))

	markers, err := mock.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != 2 {
		t.Errorf("Detect = %+v", markers)
	}
	if mock.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", mock.Calls())
	}
}
