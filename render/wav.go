package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meterbridge/jamdeck"
)

// ReadWav parses a canonical RIFF wave file into a stereo buffer: 16-bit PCM
// or 32-bit float, mono or stereo (mono is duplicated to both channels).
// This is container parsing only, no codec work; compressed formats are
// rejected.
func ReadWav(data []byte) (buf jamdeck.AudioBuffer, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF wave file")
	}
	var (
		format      uint16
		channels    uint16
		bits        uint16
		haveFmt     bool
		sampleBytes []byte
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short")
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			sampleBytes = data[body : body+size]
		}
		pos = body + size
		if size%2 == 1 { // chunks are word aligned
			pos++
		}
	}
	if !haveFmt || sampleBytes == nil {
		return nil, 0, fmt.Errorf("wave file missing fmt or data chunk")
	}
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
	}
	switch {
	case format == 1 && bits == 16:
		buf = decodePCM16(sampleBytes, int(channels))
	case format == 3 && bits == 32:
		buf = decodeFloat32(sampleBytes, int(channels))
	default:
		return nil, 0, fmt.Errorf("unsupported wave format %d/%d bits", format, bits)
	}
	return buf, sampleRate, nil
}

// WriteWav is ReadWav's counterpart, a RIFF wave file from a stereo buffer.
func WriteWav(buf jamdeck.AudioBuffer, sampleRate int, pcm16 bool) ([]byte, error) {
	return buf.Wav(sampleRate, pcm16)
}

func decodePCM16(data []byte, channels int) jamdeck.AudioBuffer {
	frameBytes := 2 * channels
	frames := len(data) / frameBytes
	buf := make(jamdeck.AudioBuffer, frames)
	for i := 0; i < frames; i++ {
		l := float32(int16(binary.LittleEndian.Uint16(data[i*frameBytes:]))) / math.MaxInt16
		r := l
		if channels == 2 {
			r = float32(int16(binary.LittleEndian.Uint16(data[i*frameBytes+2:]))) / math.MaxInt16
		}
		buf[i] = [2]float32{l, r}
	}
	return buf
}

func decodeFloat32(data []byte, channels int) jamdeck.AudioBuffer {
	frameBytes := 4 * channels
	frames := len(data) / frameBytes
	buf := make(jamdeck.AudioBuffer, frames)
	for i := 0; i < frames; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(data[i*frameBytes:]))
		r := l
		if channels == 2 {
			r = math.Float32frombits(binary.LittleEndian.Uint32(data[i*frameBytes+4:]))
		}
		buf[i] = [2]float32{l, r}
	}
	return buf
}
