// Package testutil builds synthetic camera frames for tests.
package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ayusman/posterpoint/internal/geometry"
)

// Colours used by the synthetic frames. SkinTone falls inside the default
// skin thresholds and Background does not.
var (
	SkinTone   = color.RGBA{R: 220, G: 120, B: 80, A: 255}
	Background = color.RGBA{R: 30, G: 60, B: 200, A: 255}
)

// Finger dimensions in frame pixels.
const (
	FingerWidth = 24
	PalmWidth   = 120
	PalmHeight  = 90
)

// BlankFrame returns a w×h frame filled with Background.
func BlankFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
	return img
}

// PointingFrame returns a w×h frame with a skin-coloured finger whose tip is
// at tip, running down into a palm that is cut off by the bottom edge.
func PointingFrame(w, h int, tip image.Point) *image.RGBA {
	img := BlankFrame(w, h)
	skin := &image.Uniform{C: SkinTone}

	finger := image.Rect(tip.X-FingerWidth/2, tip.Y, tip.X+FingerWidth/2, h)
	draw.Draw(img, finger.Intersect(img.Bounds()), skin, image.Point{}, draw.Src)

	palmTop := tip.Y + (h-tip.Y)/2
	if palmTop+PalmHeight < h {
		palmTop = h - PalmHeight
	}
	palm := image.Rect(tip.X-PalmWidth/2, palmTop, tip.X+PalmWidth/2, h)
	draw.Draw(img, palm.Intersect(img.Bounds()), skin, image.Point{}, draw.Src)

	return img
}

// FramePoint converts a point on the reference canvas to the frame pixel that
// scales onto it.
func FramePoint(p geometry.Point, reference geometry.Size, w, h int) image.Point {
	q := geometry.Scale(p, reference, geometry.Size{Width: float64(w), Height: float64(h)})
	return image.Point{X: int(q.X), Y: int(q.Y)}
}

// Normalized converts a point on the reference canvas to [0, 1] coordinates.
func Normalized(p geometry.Point, reference geometry.Size) (x, y float64) {
	return p.X / reference.Width, p.Y / reference.Height
}
