package jamdeck

import "io"

// AudioBuffer is a block of stereo audio, each element one left/right frame.
type AudioBuffer [][2]float32

// AudioContext is the audio output device. Play starts pulling blocks of
// audio from the callback on a real-time goroutine until the callback returns
// an error or the returned CloserWaiter is closed. The callback must fill the
// whole buffer it is given and must not block.
type AudioContext interface {
	Play(callback func(buf AudioBuffer) error) CloserWaiter
	Close() error
}

// CloserWaiter is returned by AudioContext.Play. Close stops the playback;
// Wait blocks until the playback stops on its own, meaning the callback
// returned an error (io.EOF for a source that just ran out).
type CloserWaiter interface {
	io.Closer
	Wait()
}

// Source adapts a fixed buffer into a Play callback that plays it through
// once, padding the final block with silence and then returning io.EOF.
func (buf AudioBuffer) Source() func(AudioBuffer) error {
	pos := 0
	return func(out AudioBuffer) error {
		if pos >= len(buf) {
			return io.EOF
		}
		n := copy(out, buf[pos:])
		pos += n
		for i := n; i < len(out); i++ {
			out[i] = [2]float32{}
		}
		return nil
	}
}

// Copy returns a deep copy of the buffer.
func (buf AudioBuffer) Copy() AudioBuffer {
	ret := make(AudioBuffer, len(buf))
	copy(ret, buf)
	return ret
}
