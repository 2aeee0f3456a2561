package server

import (
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/ayusman/posterpoint/internal/capture"
)

// Preview defaults.
const (
	DefaultPreviewWidth    = 480
	DefaultPreviewInterval = 100 * time.Millisecond
)

// FrameSource provides the most recent camera frame. *capture.Tee implements it.
type FrameSource interface {
	LatestFrame() *capture.Frame
}

// StreamHandler serves MJPEG preview frames.
type StreamHandler struct {
	source   FrameSource
	width    int
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler that downsizes frames to
// DefaultPreviewWidth.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{
		source:   source,
		width:    DefaultPreviewWidth,
		interval: DefaultPreviewInterval,
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastTimestamp int64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame := h.source.LatestFrame()
		if !frame.Ready() || frame.Timestamp == lastTimestamp {
			continue
		}
		lastTimestamp = frame.Timestamp

		jpeg, err := h.encode(frame)
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		w.Write(jpeg)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// encode downsizes frame and returns it as JPEG bytes.
func (h *StreamHandler) encode(frame *capture.Frame) ([]byte, error) {
	var img image.Image = frame.Image
	if h.width > 0 && frame.Width > h.width {
		img = imaging.Resize(img, h.width, 0, imaging.Linear)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
