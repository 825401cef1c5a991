// Package oto implements jamdeck.AudioContext on an actual audio device,
// through github.com/ebitengine/oto/v3. The device pulls 16-bit little-endian
// stereo; the conversion from the float32 blocks the callback fills happens
// in the pull reader, reusing one scratch buffer.
package oto

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/meterbridge/jamdeck"
)

type Context struct {
	context    *oto.Context
	sampleRate int
}

// blockFrames is how many stereo frames the pull reader asks the callback
// for at a time.
const blockFrames = 2048

// NewContext opens the default audio device and waits until it is ready.
func NewContext(sampleRate int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context, sampleRate: sampleRate}, nil
}

// Play starts pulling blocks from the callback into the device.
func (c *Context) Play(callback func(buf jamdeck.AudioBuffer) error) jamdeck.CloserWaiter {
	reader := &callbackReader{
		callback: callback,
		buf:      make(jamdeck.AudioBuffer, blockFrames),
		finished: make(chan struct{}),
	}
	player := c.context.NewPlayer(reader)
	player.Play()
	return &playback{player: player, reader: reader}
}

// Close releases nothing: oto contexts stay open for the process lifetime.
// The method exists to satisfy jamdeck.AudioContext.
func (c *Context) Close() error { return nil }

// callbackReader adapts the pull callback into the io.Reader the oto player
// consumes, converting float32 frames to 16-bit little-endian in place.
type callbackReader struct {
	callback func(buf jamdeck.AudioBuffer) error
	buf      jamdeck.AudioBuffer
	pending  []byte
	tmp      []byte

	err        error
	finished   chan struct{}
	finishOnce sync.Once
}

func (r *callbackReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.pending) == 0 {
		if err := r.callback(r.buf); err != nil {
			r.err = err
			r.finishOnce.Do(func() { close(r.finished) })
			return 0, err
		}
		r.pending = floatBufferTo16BitLE(r.buf, r.tmp[:0])
		r.tmp = r.pending
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

type playback struct {
	player *oto.Player
	reader *callbackReader
}

func (p *playback) Close() error {
	err := p.player.Close()
	p.reader.finishOnce.Do(func() { close(p.reader.finished) })
	if p.reader.err == nil {
		p.reader.err = io.EOF
	}
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Wait blocks until the callback ends the playback by returning an error
// (io.EOF for a source that just ran out), or until Close.
func (p *playback) Wait() { <-p.reader.finished }
