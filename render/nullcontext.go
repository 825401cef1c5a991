package render

import (
	"fmt"
	"sync"
	"time"

	"github.com/meterbridge/jamdeck"
)

// NullContext is an AudioContext with no device behind it: it pulls blocks
// from the callback on a wall-clock timer and throws the audio away. It
// keeps the whole stack drivable headless — tests, CI, a machine with no
// sound card.
type NullContext struct {
	sampleRate  int
	blockFrames int
}

func NewNullContext(sampleRate, blockFrames int) *NullContext {
	if blockFrames <= 0 {
		blockFrames = 1024
	}
	return &NullContext{sampleRate: sampleRate, blockFrames: blockFrames}
}

func (c *NullContext) Play(callback func(buf jamdeck.AudioBuffer) error) jamdeck.CloserWaiter {
	n := &nullPlayback{
		close:    make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	interval := time.Duration(float64(c.blockFrames) / float64(c.sampleRate) * float64(time.Second))
	go func() {
		defer close(n.finished)
		buf := make(jamdeck.AudioBuffer, c.blockFrames)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-n.close:
				return
			case <-ticker.C:
				if err := callback(buf); err != nil {
					return
				}
			}
		}
	}()
	return n
}

func (c *NullContext) Close() error { return nil }

type nullPlayback struct {
	close     chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
}

func (n *nullPlayback) Close() error {
	n.closeOnce.Do(func() { n.close <- struct{}{} })
	n.Wait()
	return nil
}

func (n *nullPlayback) Wait() { <-n.finished }

// Bounce renders the songs offline, all playing from zero at their own
// ratio-free tempo, into one buffer of the given length. It runs the same
// mixer as live playback, just pulled as fast as it will go. Used for
// rendering a set to a file without a device.
func Bounce(songs []jamdeck.Song, seconds float64, sampleRate, blockFrames int) (jamdeck.AudioBuffer, error) {
	if blockFrames <= 0 {
		blockFrames = 1024
	}
	b := newBroker()
	m := newMixer(b, sampleRate)
	for i, song := range songs {
		handle := jamdeck.Handle(fmt.Sprintf("bounce-%d", i))
		v := newVoice(handle, song, sampleRate, &voiceClock{})
		v.playing = true
		m.voices = append(m.voices, v)
	}
	total := int(seconds * float64(sampleRate))
	out := make(jamdeck.AudioBuffer, 0, total)
	block := b.getBuffer(blockFrames)
	defer b.putBuffer(block)
	for len(out) < total {
		*block = (*block)[:blockFrames]
		if err := m.process(*block); err != nil {
			return nil, err
		}
		n := total - len(out)
		if n > blockFrames {
			n = blockFrames
		}
		out = append(out, (*block)[:n]...)
	}
	return out, nil
}
