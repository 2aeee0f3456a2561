package testutil

import (
	"image"
	"testing"

	"github.com/ayusman/posterpoint/internal/geometry"
	"github.com/ayusman/posterpoint/internal/skin"
)

func TestPointingFrame_FoundBySkinLocator(t *testing.T) {
	reference := geometry.Size{Width: 1517, Height: 2200}
	want := geometry.Point{X: 1200, Y: 1800}
	tip := FramePoint(want, reference, 640, 480)

	cfg := skin.DefaultConfig()
	cfg.Reference = reference
	got, ok := skin.NewLocator(cfg).Locate(PointingFrame(640, 480, tip))
	if !ok {
		t.Fatal("skin locator found no finger")
	}

	// The locator reports the left corner of the fingertip.
	if d := geometry.Distance(got, want); d > float64(FingerWidth/2+1)*reference.Width/640 {
		t.Errorf("tip = %v, want near %v (off by %.1f)", got, want, d)
	}
}

func TestBlankFrame_HasNoSkin(t *testing.T) {
	cfg := skin.DefaultConfig()
	if _, ok := skin.NewLocator(cfg).Locate(BlankFrame(320, 240)); ok {
		t.Error("found skin in a blank frame")
	}
}

func TestNormalized(t *testing.T) {
	x, y := Normalized(geometry.Point{X: 758.5, Y: 550}, geometry.Size{Width: 1517, Height: 2200})
	if x != 0.5 || y != 0.25 {
		t.Errorf("Normalized() = (%v, %v), want (0.5, 0.25)", x, y)
	}
	if p := FramePoint(geometry.Point{X: 1517, Y: 2200}, geometry.Size{Width: 1517, Height: 2200}, 640, 480); p != (image.Point{X: 640, Y: 480}) {
		t.Errorf("FramePoint() = %v", p)
	}
}
