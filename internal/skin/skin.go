// Package skin locates a pointing fingertip by segmenting skin-coloured pixels.
// It is the fallback used when the landmark tracker cannot find a hand.
package skin

import (
	"image"
	"image/draw"
	"log"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Config holds the segmentation thresholds. Hue is in degrees, saturation and
// value are in [0, 1].
type Config struct {
	HueMin float64
	HueMax float64
	SatMin float64
	SatMax float64
	ValMin float64
	ValMax float64

	// MinRegionPixels drops connected regions with this many pixels or fewer.
	MinRegionPixels int
	// MinArea is the smallest region area in pixels accepted as a hand.
	MinArea int

	// MaxWidth downscales wider frames before segmentation (0 disables).
	MaxWidth int
	// Blur is the Gaussian blur radius applied before classification (0 disables).
	Blur float64

	// Reference is the canvas the returned point is scaled into.
	Reference geometry.Size
}

// DefaultConfig returns the thresholds tuned for the kiosk lighting.
func DefaultConfig() Config {
	return Config{
		HueMin:          0,
		HueMax:          20,
		SatMin:          48.0 / 255.0,
		SatMax:          1.0,
		ValMin:          80.0 / 255.0,
		ValMax:          1.0,
		MinRegionPixels: 10,
		MinArea:         500,
		MaxWidth:        640,
		Blur:            0,
		Reference:       geometry.Size{Width: 1517, Height: 2200},
	}
}

// Locator finds the topmost point of the largest skin region in a frame.
type Locator struct {
	config Config
}

// NewLocator creates a Locator with the given configuration.
func NewLocator(config Config) *Locator {
	return &Locator{config: config}
}

// Config returns the locator configuration.
func (l *Locator) Config() Config {
	return l.config
}

// Locate returns the fingertip position in reference coordinates.
// It never panics; any failure is reported as no detection.
func (l *Locator) Locate(img image.Image) (tip geometry.Point, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("skin locator recovered: %v", r)
			tip, ok = geometry.Point{}, false
		}
	}()

	if img == nil || img.Bounds().Empty() {
		return geometry.Point{}, false
	}

	src := l.prepare(img)
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	mask := l.Mask(src)
	best, found := largestRegion(mask, width, height, l.config.MinRegionPixels)
	if !found || best.pixels < l.config.MinArea {
		return geometry.Point{}, false
	}

	return geometry.Scale(
		geometry.Point{X: float64(best.top.X), Y: float64(best.top.Y)},
		geometry.Size{Width: float64(width), Height: float64(height)},
		l.config.Reference,
	), true
}

// prepare applies the optional downscale and blur steps.
func (l *Locator) prepare(img image.Image) image.Image {
	out := img
	if l.config.MaxWidth > 0 && out.Bounds().Dx() > l.config.MaxWidth {
		out = imaging.Resize(out, l.config.MaxWidth, 0, imaging.Box)
	}
	if l.config.Blur > 0 {
		out = blur.Gaussian(out, l.config.Blur)
	}
	return out
}

// Mask classifies every pixel of img, returning one byte per pixel in row-major
// order: 255 for skin, 0 otherwise.
func (l *Locator) Mask(img image.Image) []uint8 {
	pix, stride, rect := rgbPlane(img)
	width, height := rect.Dx(), rect.Dy()
	mask := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		for x := 0; x < width; x++ {
			i := x * 4
			if l.IsSkin(row[i], row[i+1], row[i+2]) {
				mask[y*width+x] = 255
			}
		}
	}

	return mask
}

// rgbPlane returns 4-byte-per-pixel data for img starting at its top-left pixel.
// Camera frames arrive as *image.RGBA; anything else is drawn into one on the
// calling goroutine so a failing image stays within Locate's recover.
func rgbPlane(img image.Image) ([]uint8, int, image.Rectangle) {
	switch src := img.(type) {
	case *image.RGBA:
		return src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y):], src.Stride, src.Rect
	case *image.NRGBA:
		return src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y):], src.Stride, src.Rect
	default:
		dst := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		draw.Draw(dst, dst.Rect, img, img.Bounds().Min, draw.Src)
		return dst.Pix, dst.Stride, dst.Rect
	}
}

// IsSkin reports whether an 8-bit RGB colour falls inside the configured HSV ranges.
func (l *Locator) IsSkin(r, g, b uint8) bool {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := c.Hsv()

	return h >= l.config.HueMin && h <= l.config.HueMax &&
		s >= l.config.SatMin && s <= l.config.SatMax &&
		v >= l.config.ValMin && v <= l.config.ValMax
}
