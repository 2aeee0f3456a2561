package skin

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ayusman/posterpoint/internal/geometry"
)

var (
	skinTone   = color.RGBA{R: 220, G: 120, B: 80, A: 255}
	background = color.RGBA{R: 30, G: 60, B: 200, A: 255}
)

// newFrame returns a w x h frame filled with the background colour.
func newFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, background)
		}
	}
	return img
}

// fill paints r with c.
func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestLocator_IsSkin(t *testing.T) {
	l := NewLocator(DefaultConfig())

	tests := []struct {
		name string
		c    color.RGBA
		want bool
	}{
		{name: "warm skin tone", c: skinTone, want: true},
		{name: "blue background", c: background, want: false},
		{name: "too dark", c: color.RGBA{R: 70, G: 40, B: 30}, want: false},
		{name: "grey has no saturation", c: color.RGBA{R: 150, G: 150, B: 150}, want: false},
		{name: "green hue", c: color.RGBA{R: 60, G: 200, B: 60}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.IsSkin(tt.c.R, tt.c.G, tt.c.B); got != tt.want {
				t.Errorf("IsSkin(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestLocator_Locate(t *testing.T) {
	t.Run("topmost point of blob scaled to reference", func(t *testing.T) {
		img := newFrame(200, 200)
		fill(img, image.Rect(80, 50, 120, 150), skinTone)

		tip, ok := NewLocator(DefaultConfig()).Locate(img)
		if !ok {
			t.Fatal("expected a fingertip")
		}

		want := geometry.Point{X: 80.0 / 200 * 1517, Y: 50.0 / 200 * 2200}
		if geometry.Distance(tip, want) > 1e-9 {
			t.Errorf("Locate = %v, want %v", tip, want)
		}
	})

	t.Run("largest region wins", func(t *testing.T) {
		img := newFrame(200, 200)
		fill(img, image.Rect(10, 10, 40, 40), skinTone)    // 900 px, higher up
		fill(img, image.Rect(100, 60, 160, 180), skinTone) // 7200 px

		tip, ok := NewLocator(DefaultConfig()).Locate(img)
		if !ok {
			t.Fatal("expected a fingertip")
		}

		want := geometry.Point{X: 100.0 / 200 * 1517, Y: 60.0 / 200 * 2200}
		if geometry.Distance(tip, want) > 1e-9 {
			t.Errorf("Locate = %v, want %v", tip, want)
		}
	})

	t.Run("diagonal pixels are connected", func(t *testing.T) {
		img := newFrame(100, 100)
		fill(img, image.Rect(20, 20, 50, 50), skinTone)
		fill(img, image.Rect(50, 50, 80, 80), skinTone) // touches only at a corner

		cfg := DefaultConfig()
		cfg.MinArea = 1500
		if _, ok := NewLocator(cfg).Locate(img); !ok {
			t.Error("expected the two squares to form one 1800 px region")
		}
	})

	t.Run("region below minimum area", func(t *testing.T) {
		img := newFrame(200, 200)
		fill(img, image.Rect(50, 50, 60, 60), skinTone) // 100 px

		if _, ok := NewLocator(DefaultConfig()).Locate(img); ok {
			t.Error("expected no fingertip for a 100 px region")
		}
	})

	t.Run("no skin", func(t *testing.T) {
		if _, ok := NewLocator(DefaultConfig()).Locate(newFrame(64, 64)); ok {
			t.Error("expected no fingertip on an empty frame")
		}
	})

	t.Run("nil and empty images", func(t *testing.T) {
		l := NewLocator(DefaultConfig())
		if _, ok := l.Locate(nil); ok {
			t.Error("expected no fingertip for nil image")
		}
		if _, ok := l.Locate(image.NewRGBA(image.Rectangle{})); ok {
			t.Error("expected no fingertip for empty image")
		}
	})
}

func TestLocator_DownscaleKeepsReferencePosition(t *testing.T) {
	img := newFrame(1280, 720)
	fill(img, image.Rect(640, 200, 760, 600), skinTone)

	cfg := DefaultConfig()
	cfg.MaxWidth = 320

	tip, ok := NewLocator(cfg).Locate(img)
	if !ok {
		t.Fatal("expected a fingertip after downscaling")
	}

	want := geometry.Point{X: 640.0 / 1280 * 1517, Y: 200.0 / 720 * 2200}
	// One downscaled pixel in reference units.
	tolX, tolY := 1517.0/320*2, 2200.0/180*2
	if math.Abs(tip.X-want.X) > tolX || math.Abs(tip.Y-want.Y) > tolY {
		t.Errorf("Locate = %v, want about %v", tip, want)
	}
}

// panicImage fails on every pixel read.
type panicImage struct{}

func (panicImage) ColorModel() color.Model { return color.RGBAModel }
func (panicImage) Bounds() image.Rectangle { return image.Rect(0, 0, 10, 10) }
func (panicImage) At(x, y int) color.Color { panic("corrupt frame") }

func TestLocator_RecoversFromPanics(t *testing.T) {
	tip, ok := NewLocator(DefaultConfig()).Locate(panicImage{})
	if ok {
		t.Errorf("expected no detection, got %v", tip)
	}
}

func TestLargestRegion_IgnoresSmallComponents(t *testing.T) {
	const w, h = 10, 10
	mask := make([]uint8, w*h)
	for _, idx := range []int{11, 12, 21, 22} {
		mask[idx] = 255
	}

	if _, ok := largestRegion(mask, w, h, 10); ok {
		t.Error("expected 4 px region to be dropped")
	}
	r, ok := largestRegion(mask, w, h, 3)
	if !ok || r.pixels != 4 || r.top != (image.Point{X: 1, Y: 1}) {
		t.Errorf("largestRegion = %+v, %v", r, ok)
	}
}
