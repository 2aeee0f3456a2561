// Package capture provides the camera frame source for the pointing detector.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480

	// MaxProbeDevices bounds the scan for any working camera once the
	// preferred devices have failed.
	MaxProbeDevices = 4
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrNoCamera is returned by Open when no device could be opened.
	ErrNoCamera = errors.New("no camera available")
)

// Frame is one RGBA snapshot from the camera. Frames are never reused by the
// source, so a consumer may hand one to another goroutine.
type Frame struct {
	Image     *image.RGBA
	Timestamp int64 // unix milliseconds
	Width     int
	Height    int
}

// NewFrame wraps img with its dimensions and the given capture time.
func NewFrame(img *image.RGBA, at time.Time) *Frame {
	if img == nil {
		return &Frame{Timestamp: at.UnixMilli()}
	}
	b := img.Bounds()
	return &Frame{
		Image:     img,
		Timestamp: at.UnixMilli(),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}
}

// Ready reports whether the frame carries pixels.
func (f *Frame) Ready() bool {
	return f != nil && f.Image != nil && f.Width > 0 && f.Height > 0
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	preferred []int
	capture   *gocv.VideoCapture
	mat       gocv.Mat
	mu        sync.Mutex
	running   bool
	fps       int
}

// NewCamera creates a Camera that tries the preferred device ids in order and
// then any device up to MaxProbeDevices. The default FPS is 5.
func NewCamera(preferred ...int) Camera {
	return &cameraImpl{
		preferred: preferred,
		fps:       DefaultFPS,
	}
}

// candidates returns the preferred ids followed by the probe range, without
// duplicates.
func (c *cameraImpl) candidates() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, id := range c.preferred {
		if id >= 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := 0; id < MaxProbeDevices; id++ {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Open opens the first camera that delivers frames.
// It sets the resolution to 640x480 for performance.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var lastErr error
	for i, id := range c.candidates() {
		capture, err := gocv.OpenVideoCapture(id)
		if err != nil {
			lastErr = err
			continue
		}
		if !capture.IsOpened() {
			capture.Close()
			lastErr = fmt.Errorf("device %d did not open", id)
			continue
		}

		// Set resolution for performance
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

		if i >= len(c.preferred) && len(c.preferred) > 0 {
			log.Printf("Preferred cameras %v unavailable, using device %d", c.preferred, id)
		} else {
			log.Printf("Camera opened on device %d", id)
		}

		c.capture = capture
		c.mat = gocv.NewMat()
		c.running = true
		return nil
	}

	if lastErr == nil {
		return ErrNoCamera
	}
	return fmt.Errorf("%w: %v", ErrNoCamera, lastErr)
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.mat.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera and converts it to RGBA.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	if ok := c.capture.Read(&c.mat); !ok {
		return nil, errors.New("failed to read frame from camera")
	}

	if c.mat.Empty() {
		return nil, errors.New("captured frame is empty")
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	return NewFrame(toRGBA(img), time.Now()), nil
}

// toRGBA returns img as *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
