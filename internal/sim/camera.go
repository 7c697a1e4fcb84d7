package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/artifact/frame"
)

// Camera publishes synthetic frames into the shared frame buffer at a fixed
// cadence, standing in for the capture hardware.
type Camera struct {
	buffer   *frame.Buffer
	logger   *slog.Logger
	width    int
	height   int
	interval time.Duration
}

// NewCamera creates a simulated camera writing into buf.
func NewCamera(buf *frame.Buffer, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		buffer:   buf,
		logger:   logger,
		width:    64,
		height:   48,
		interval: 100 * time.Millisecond,
	}
}

// Run captures frames until the context is cancelled.
func (c *Camera) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("simulated camera running", "width", c.width, "height", c.height)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Capture(now)
		}
	}
}

// Capture synthesizes one frame and publishes it. The pixel content is a
// horizontal gradient shifted by the sequence number, enough to tell frames
// apart downstream.
func (c *Camera) Capture(now time.Time) uint64 {
	pixels := make([]byte, c.width*c.height)
	shift := byte(c.buffer.Seq())
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			pixels[y*c.width+x] = byte(x) + shift
		}
	}
	return c.buffer.Publish(&frame.Frame{
		Width:    c.width,
		Height:   c.height,
		Pixels:   pixels,
		Captured: now,
	})
}
