// Package render is the reference AudioEngine: it mixes the loaded songs'
// PCM on a real-time goroutine pulled by an AudioContext (a device via the
// oto package, or a null context for headless use). Tempo is realized as a
// varispeed read head — the playback rate changes and the pitch moves with
// it; time-stretching is explicitly not this package's business.
//
// The package splits along the real-time boundary: Adapter is the control
// side, called by the engine; mixer runs on the render goroutine. They talk
// through one buffered channel with non-blocking sends, so neither side ever
// waits on the other, and positions come back as per-block atomics.
package render

import (
	"sync"

	"github.com/meterbridge/jamdeck"
)

type (
	// broker carries messages from the control side to the render goroutine,
	// and pools audio buffers for the paths that pull blocks outside the
	// device callback (the null context, offline bounces).
	broker struct {
		toMixer chan mixerMsg

		bufferPool sync.Pool
	}

	// mixerMsg is one control-plane mutation, applied by the render
	// goroutine at the start of its next block. Exactly one of the op
	// constants below; the fields that op needs are set, the rest are zero.
	mixerMsg struct {
		op     mixerOp
		handle jamdeck.Handle

		voice *voice // opAdd only

		value float64 // seek position, tempo, volume, master volume
		flag  bool    // muted, soloed, loop enabled
		start float64 // loop window
		end   float64
	}

	mixerOp int
)

const (
	opAdd mixerOp = iota
	opRemove
	opPlay
	opPause
	opSeek
	opTempo
	opVolume
	opMuted
	opSoloed
	opLoop
	opMasterVolume
)

func newBroker() *broker {
	return &broker{
		toMixer:    make(chan mixerMsg, 1024),
		bufferPool: sync.Pool{New: func() any { return &jamdeck.AudioBuffer{} }},
	}
}

// trySend delivers a message without ever blocking. Returns false when the
// queue is full, meaning the render side has not kept up; the caller logs
// and moves on, because stalling the control plane is worse than a lost
// mutation.
func (b *broker) trySend(msg mixerMsg) bool {
	select {
	case b.toMixer <- msg:
		return true
	default:
		return false
	}
}

// getBuffer returns a pooled buffer resized to n frames.
func (b *broker) getBuffer(n int) *jamdeck.AudioBuffer {
	buf := b.bufferPool.Get().(*jamdeck.AudioBuffer)
	if cap(*buf) < n {
		*buf = make(jamdeck.AudioBuffer, n)
	} else {
		*buf = (*buf)[:n]
		for i := range *buf {
			(*buf)[i] = [2]float32{}
		}
	}
	return buf
}

// putBuffer returns a buffer to the pool, length reset but capacity kept.
func (b *broker) putBuffer(buf *jamdeck.AudioBuffer) {
	*buf = (*buf)[:0]
	b.bufferPool.Put(buf)
}
