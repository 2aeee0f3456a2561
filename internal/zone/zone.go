// Package zone defines the selectable poster regions and classifies pointer
// positions against them.
package zone

import (
	"fmt"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Reference canvas of the printed poster, in logical units.
const (
	ReferenceWidth  = 1517
	ReferenceHeight = 2200
)

// DefaultReference returns the logical poster canvas.
func DefaultReference() geometry.Size {
	return geometry.Size{Width: ReferenceWidth, Height: ReferenceHeight}
}

// Zone is a named polygon on the poster with its display metadata.
type Zone struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	VideoURL string           `json:"video_url"`
	Polygon  []geometry.Point `json:"polygon"`
}

// Contains reports whether p lies inside the zone polygon.
func (z Zone) Contains(p geometry.Point) bool {
	return geometry.PointInPolygon(p, z.Polygon)
}

// ValidationError describes a zone rejected at configuration time.
type ValidationError struct {
	Zone   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Zone == "" {
		return "invalid zone: " + e.Reason
	}
	return fmt.Sprintf("invalid zone %q: %s", e.Zone, e.Reason)
}

// Set is an ordered collection of zones. Earlier zones take priority when
// polygons overlap.
type Set struct {
	reference geometry.Size
	zones     []Zone
	byName    map[string]int
}

// NewSet validates zones and returns them as a Set in the given order.
func NewSet(reference geometry.Size, zones ...Zone) (*Set, error) {
	if reference.Width <= 0 || reference.Height <= 0 {
		return nil, &ValidationError{Reason: "reference canvas must have a positive size"}
	}

	s := &Set{
		reference: reference,
		zones:     make([]Zone, 0, len(zones)),
		byName:    make(map[string]int, len(zones)),
	}

	for _, z := range zones {
		switch {
		case z.Name == "":
			return nil, &ValidationError{Reason: "name is required"}
		case len(z.Polygon) < 3:
			return nil, &ValidationError{Zone: z.Name, Reason: fmt.Sprintf("polygon has %d vertices, need at least 3", len(z.Polygon))}
		case geometry.PolygonArea(z.Polygon) == 0:
			return nil, &ValidationError{Zone: z.Name, Reason: "polygon has zero area"}
		}
		if _, dup := s.byName[z.Name]; dup {
			return nil, &ValidationError{Zone: z.Name, Reason: "duplicate name"}
		}

		poly := make([]geometry.Point, len(z.Polygon))
		copy(poly, z.Polygon)
		z.Polygon = poly

		s.byName[z.Name] = len(s.zones)
		s.zones = append(s.zones, z)
	}

	return s, nil
}

// Classify returns the first zone, in declared order, containing p.
func (s *Set) Classify(p geometry.Point) (Zone, bool) {
	for _, z := range s.zones {
		if z.Contains(p) {
			return z, true
		}
	}
	return Zone{}, false
}

// Get returns the zone with the given name.
func (s *Set) Get(name string) (Zone, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Zone{}, false
	}
	return s.zones[i], true
}

// Zones returns the zones in declared order.
func (s *Set) Zones() []Zone {
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// Reference returns the canvas the polygons are expressed in.
func (s *Set) Reference() geometry.Size {
	return s.reference
}

// Default returns the zones printed on the mindful-eating poster.
func Default() *Set {
	s, err := NewSet(DefaultReference(),
		Zone{
			Name:     "distracted",
			Title:    "I eat while distracted",
			VideoURL: "/videos/distracted.mp4",
			Polygon:  []geometry.Point{{X: 703, Y: 671}, {X: 1622, Y: 652}, {X: 1628, Y: 1312}, {X: 823, Y: 1328}},
		},
		Zone{
			Name:     "hurry",
			Title:    "I eat in hurry",
			VideoURL: "/videos/hurry.mp4",
			Polygon:  []geometry.Point{{X: 82, Y: 1125}, {X: 748, Y: 1133}, {X: 740, Y: 1850}, {X: 66, Y: 1860}},
		},
		Zone{
			Name:     "mindfully",
			Title:    "I eat mindfully",
			VideoURL: "/videos/mindfully.mp4",
			Polygon:  []geometry.Point{{X: 852, Y: 1534}, {X: 1620, Y: 1531}, {X: 1633, Y: 2186}, {X: 802, Y: 2192}},
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}
