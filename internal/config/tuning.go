package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/posterpoint/internal/marker"
)

// Tuning is the optional JSON file for settings that are awkward as flags.
// Absent fields leave the current value alone.
type Tuning struct {
	Strategy      string             `json:"strategy,omitempty"`
	Mapping       string             `json:"mapping,omitempty"`
	DwellMs       *int               `json:"dwell_ms,omitempty"`
	FallbackAfter *int               `json:"fallback_after,omitempty"`
	MinMarkerSize *float64           `json:"min_marker_size,omitempty"`
	Corners       *marker.CornerSpec `json:"corners,omitempty"`
	Skin          *SkinTuning        `json:"skin,omitempty"`
	Hand          *HandTuning        `json:"hand,omitempty"`
}

// SkinTuning overrides the skin segmentation thresholds.
type SkinTuning struct {
	HueMin  *float64 `json:"hue_min,omitempty"`
	HueMax  *float64 `json:"hue_max,omitempty"`
	SatMin  *float64 `json:"sat_min,omitempty"`
	SatMax  *float64 `json:"sat_max,omitempty"`
	ValMin  *float64 `json:"val_min,omitempty"`
	ValMax  *float64 `json:"val_max,omitempty"`
	MinArea *int     `json:"min_area,omitempty"`
	Blur    *float64 `json:"blur,omitempty"`
}

// HandTuning overrides the MediaPipe service settings.
type HandTuning struct {
	MinDetection    *float64 `json:"min_detection,omitempty"`
	MinTracking     *float64 `json:"min_tracking,omitempty"`
	ModelComplexity *int     `json:"model_complexity,omitempty"`
	IdleTimeoutSec  *int     `json:"idle_timeout_sec,omitempty"`
}

// ReadTuning decodes a tuning file. Unknown fields are rejected.
func ReadTuning(path string) (Tuning, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("open tuning: %w", err)
	}
	defer f.Close()

	var t Tuning
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return Tuning{}, fmt.Errorf("decode tuning %s: %w", path, err)
	}
	return t, nil
}

// applyTuning copies the set fields of t, skipping settings whose flag was
// given explicitly.
func (c *Config) applyTuning(t Tuning, explicit map[string]bool) {
	if t.Strategy != "" && !explicit["strategy"] {
		c.Strategy = t.Strategy
	}
	if t.Mapping != "" && !explicit["mapping"] {
		c.Mapping = t.Mapping
	}
	if t.DwellMs != nil && !explicit["dwell"] {
		c.Dwell = time.Duration(*t.DwellMs) * time.Millisecond
	}
	if t.FallbackAfter != nil && !explicit["fallback-after"] {
		c.FallbackAfter = *t.FallbackAfter
	}
	if t.MinMarkerSize != nil && !explicit["min-marker-size"] {
		c.MinMarkerSize = *t.MinMarkerSize
	}
	if t.Corners != nil {
		c.Corners = *t.Corners
		if c.Corners.Buffer == 0 {
			c.Corners.Buffer = marker.DefaultBuffer
		}
	}

	if s := t.Skin; s != nil {
		setFloat(&c.Skin.HueMin, s.HueMin)
		setFloat(&c.Skin.HueMax, s.HueMax)
		setFloat(&c.Skin.SatMin, s.SatMin)
		setFloat(&c.Skin.SatMax, s.SatMax)
		setFloat(&c.Skin.ValMin, s.ValMin)
		setFloat(&c.Skin.ValMax, s.ValMax)
		setFloat(&c.Skin.Blur, s.Blur)
		if s.MinArea != nil {
			c.Skin.MinArea = *s.MinArea
		}
	}

	if h := t.Hand; h != nil {
		setFloat(&c.Hand.MinConfidence, h.MinDetection)
		setFloat(&c.Hand.MinTrackingConf, h.MinTracking)
		if h.ModelComplexity != nil {
			c.Hand.ModelComplexity = *h.ModelComplexity
		}
		if h.IdleTimeoutSec != nil {
			c.Hand.IdleTimeoutSec = *h.IdleTimeoutSec
		}
	}
}

func setFloat(dst, v *float64) {
	if v != nil {
		*dst = *v
	}
}
