// Package frame provides the latest-camera-frame buffer, the only mutable
// state shared between the capture goroutine and the core tick loop. The
// writer publishes completed frames; the reader always observes the most
// recent complete frame. Neither side ever blocks the other: exchange is a
// single atomic pointer swap.
package frame

import (
	"sync/atomic"
	"time"
)

// Frame is one complete captured image. Pixels layout is owned by the camera
// driver; the core treats it as opaque bytes.
type Frame struct {
	Seq      uint64
	Width    int
	Height   int
	Pixels   []byte
	Captured time.Time
}

// Buffer is a double buffer for the latest camera frame. The zero value is
// ready to use.
type Buffer struct {
	latest atomic.Pointer[Frame]
	seq    atomic.Uint64
}

// Publish exposes a completed frame to readers. The frame must not be
// mutated after publishing. Returns the sequence number assigned.
func (b *Buffer) Publish(f *Frame) uint64 {
	seq := b.seq.Add(1)
	f.Seq = seq
	b.latest.Store(f)
	return seq
}

// Latest returns the most recent complete frame, or nil if none has been
// published yet.
func (b *Buffer) Latest() *Frame {
	return b.latest.Load()
}

// Seq returns the sequence number of the last published frame.
func (b *Buffer) Seq() uint64 {
	return b.seq.Load()
}
