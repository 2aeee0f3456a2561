package zone

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/posterpoint/internal/geometry"
)

func rect(x0, y0, x1, y1 float64) []geometry.Point {
	return []geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestDefault_Classify(t *testing.T) {
	s := Default()

	tests := []struct {
		name  string
		point geometry.Point
		want  string
	}{
		{name: "mindfully", point: geometry.Point{X: 900, Y: 1700}, want: "mindfully"},
		{name: "hurry", point: geometry.Point{X: 400, Y: 1500}, want: "hurry"},
		{name: "distracted", point: geometry.Point{X: 1200, Y: 1000}, want: "distracted"},
		{name: "outside every zone", point: geometry.Point{X: 100, Y: 100}, want: ""},
		{name: "between zones", point: geometry.Point{X: 775, Y: 1500}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, ok := s.Classify(tt.point)
			if tt.want == "" {
				if ok {
					t.Errorf("Classify(%v) = %q, want no zone", tt.point, z.Name)
				}
				return
			}
			if !ok || z.Name != tt.want {
				t.Errorf("Classify(%v) = %q, %v; want %q", tt.point, z.Name, ok, tt.want)
			}
		})
	}
}

func TestSet_ClassifyPriority(t *testing.T) {
	first := Zone{Name: "first", Polygon: rect(0, 0, 100, 100)}
	second := Zone{Name: "second", Polygon: rect(50, 50, 150, 150)}
	p := geometry.Point{X: 75, Y: 75}

	s, err := NewSet(DefaultReference(), first, second)
	if err != nil {
		t.Fatalf("NewSet error: %v", err)
	}
	for i := 0; i < 10; i++ {
		z, ok := s.Classify(p)
		if !ok || z.Name != "first" {
			t.Fatalf("call %d: Classify = %q, want first", i, z.Name)
		}
	}

	reversed, err := NewSet(DefaultReference(), second, first)
	if err != nil {
		t.Fatalf("NewSet error: %v", err)
	}
	if z, _ := reversed.Classify(p); z.Name != "second" {
		t.Errorf("reversed Classify = %q, want second", z.Name)
	}
}

func TestNewSet_Validation(t *testing.T) {
	tests := []struct {
		name  string
		ref   geometry.Size
		zones []Zone
	}{
		{name: "two vertices", ref: DefaultReference(), zones: []Zone{{Name: "a", Polygon: []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}}},
		{name: "zero area", ref: DefaultReference(), zones: []Zone{{Name: "a", Polygon: []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}}}},
		{name: "missing name", ref: DefaultReference(), zones: []Zone{{Polygon: rect(0, 0, 1, 1)}}},
		{name: "duplicate name", ref: DefaultReference(), zones: []Zone{{Name: "a", Polygon: rect(0, 0, 1, 1)}, {Name: "a", Polygon: rect(2, 2, 3, 3)}}},
		{name: "empty reference", ref: geometry.Size{}, zones: []Zone{{Name: "a", Polygon: rect(0, 0, 1, 1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.ref, tt.zones...)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSet_ZonesAreCopies(t *testing.T) {
	poly := rect(0, 0, 10, 10)
	s, err := NewSet(DefaultReference(), Zone{Name: "a", Polygon: poly})
	if err != nil {
		t.Fatalf("NewSet error: %v", err)
	}

	poly[0] = geometry.Point{X: 500, Y: 500}
	z, _ := s.Get("a")
	if z.Polygon[0] != (geometry.Point{X: 0, Y: 0}) {
		t.Error("Set must not alias the caller's polygon")
	}
}

func TestParse(t *testing.T) {
	const doc = `{
		"reference": {"width": 100, "height": 200},
		"zones": [
			{"name": "left", "title": "Left", "video_url": "/videos/left.mp4", "polygon": [[0,0],[50,0],[50,200],[0,200]]},
			{"name": "right", "title": "Right", "video_url": "/videos/right.mp4", "polygon": [[50,0],[100,0],[100,200],[50,200]]}
		]
	}`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if diff := cmp.Diff(geometry.Size{Width: 100, Height: 200}, s.Reference()); diff != "" {
		t.Errorf("Reference mismatch (-want +got):\n%s", diff)
	}

	names := make([]string, 0, 2)
	for _, z := range s.Zones() {
		names = append(names, z.Name)
	}
	if diff := cmp.Diff([]string{"left", "right"}, names); diff != "" {
		t.Errorf("zone order mismatch (-want +got):\n%s", diff)
	}

	z, ok := s.Classify(geometry.Point{X: 75, Y: 10})
	if !ok || z.Name != "right" || z.VideoURL != "/videos/right.mp4" {
		t.Errorf("Classify = %+v, %v", z, ok)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "bad json", doc: `{"zones": [`},
		{name: "unknown field", doc: `{"zonez": []}`},
		{name: "short polygon", doc: `{"zones": [{"name": "a", "polygon": [[0,0],[1,1]]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "zones.json")
		doc := `{"zones": [{"name": "a", "title": "A", "polygon": [[0,0],[10,0],[10,10]]}]}`
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("write zones: %v", err)
		}

		s, err := Load(path)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if s.Reference() != DefaultReference() {
			t.Errorf("Reference = %+v, want default", s.Reference())
		}
		if _, ok := s.Get("a"); !ok {
			t.Error("expected zone a")
		}
	})
}
