// Package httpapi serves the MJPEG preview stream over plain HTTP,
// pulling already-published frames from a corectx.Context rather than
// owning any capture of its own.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/robotvision/armctl/internal/corectx"
	"github.com/robotvision/armctl/pkg/vision"
)

// streamFPS is the MJPEG streamer's pull cadence.
const streamFPS = 25

// MJPEGHandler serves GET /stream.mjpg: multipart/x-mixed-replace
// composed of the latest published frame, pulled on its own ticker
// per connection.
type MJPEGHandler struct {
	ctx  *corectx.Context
	opts vision.OverlayOptions
}

// NewMJPEGHandler builds a handler that renders axes and the active
// pick-place trajectory onto every streamed frame.
func NewMJPEGHandler(ctx *corectx.Context) *MJPEGHandler {
	return &MJPEGHandler{
		ctx:  ctx,
		opts: vision.OverlayOptions{DrawAxes: true, DrawTrajectory: true},
	}
}

func (h *MJPEGHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ticker := time.NewTicker(time.Second / streamFPS)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			jpeg, err := h.ctx.Publisher.LatestJPEG(h.opts)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")
			flusher.Flush()
		}
	}
}
