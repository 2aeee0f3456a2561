package marker

import (
	"sort"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Registration locates the poster area in the frame from the inner corners of
// the corner markers.
type Registration struct {
	Corners []geometry.Point `json:"corners"`
	Bounds  geometry.Rect    `json:"bounds"`
	Center  geometry.Point   `json:"center"`

	// Homography maps frame pixels into the reference canvas. It is only set
	// when all four corners were found.
	Homography *geometry.Homography `json:"-"`
}

// Register builds a Registration from markers matched against s. At most one
// corner may be missing; ok is false otherwise.
func (s CornerSpec) Register(markers []Marker, reference geometry.Size) (Registration, bool) {
	found := make(map[Slot]geometry.Point, 4)
	for _, m := range markers {
		c, known := s.Corners[m.ID]
		if !known || c.Inner < 0 || c.Inner > 3 {
			continue
		}
		if _, dup := found[c.Slot]; dup {
			continue
		}
		found[c.Slot] = m.Corners[c.Inner]
	}

	if len(s.Corners) == 0 || len(found) < len(s.Corners)-1 {
		return Registration{}, false
	}

	slots := make([]Slot, 0, len(found))
	for slot := range found {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	reg := Registration{Corners: make([]geometry.Point, 0, len(slots))}
	for _, slot := range slots {
		reg.Corners = append(reg.Corners, found[slot])
	}
	reg.Bounds = geometry.Bounds(reg.Corners)
	reg.Center = reg.Bounds.Center()

	if len(found) == 4 {
		src := geometry.Quad{found[TopLeft], found[TopRight], found[BottomRight], found[BottomLeft]}
		dst := geometry.Quad{
			{X: 0, Y: 0},
			{X: reference.Width, Y: 0},
			{X: reference.Width, Y: reference.Height},
			{X: 0, Y: reference.Height},
		}
		if h, err := geometry.NewHomography(src, dst); err == nil {
			reg.Homography = &h
		}
	}

	return reg, true
}
