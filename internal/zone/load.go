package zone

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// fileFormat is the on-disk zone configuration. Polygons are [x, y] pairs.
type fileFormat struct {
	Reference *geometry.Size `json:"reference"`
	Zones     []struct {
		Name     string       `json:"name"`
		Title    string       `json:"title"`
		VideoURL string       `json:"video_url"`
		Polygon  [][2]float64 `json:"polygon"`
	} `json:"zones"`
}

// Load reads and validates a zone configuration file.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zones: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load zones %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a zone configuration. A missing reference defaults to the
// poster canvas.
func Parse(r io.Reader) (*Set, error) {
	var cfg fileFormat
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode zones: %w", err)
	}

	reference := DefaultReference()
	if cfg.Reference != nil {
		reference = *cfg.Reference
	}

	zones := make([]Zone, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		poly := make([]geometry.Point, len(z.Polygon))
		for i, v := range z.Polygon {
			poly[i] = geometry.Point{X: v[0], Y: v[1]}
		}
		zones = append(zones, Zone{
			Name:     z.Name,
			Title:    z.Title,
			VideoURL: z.VideoURL,
			Polygon:  poly,
		})
	}

	return NewSet(reference, zones...)
}
