package jamdeck

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav returns the buffer as a stereo .wav file. If pcm16 is true the samples
// are converted to 16-bit signed PCM; otherwise they are kept as float32.
func (buf AudioBuffer) Wav(sampleRate int, pcm16 bool) ([]byte, error) {
	ret := new(bytes.Buffer)
	wavHeader(len(buf)*2, sampleRate, pcm16, ret)
	if err := buf.rawToBuffer(pcm16, ret); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return ret.Bytes(), nil
}

// Raw returns the bare interleaved samples, without any header.
func (buf AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	ret := new(bytes.Buffer)
	if err := buf.rawToBuffer(pcm16, ret); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return ret.Bytes(), nil
}

func (buf AudioBuffer) rawToBuffer(pcm16 bool, w *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(buf)*2)
		for i, frame := range buf {
			int16data[i*2] = pcm16Sample(frame[0])
			int16data[i*2+1] = pcm16Sample(frame[1])
		}
		err = binary.Write(w, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(w, binary.LittleEndian, buf)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

func pcm16Sample(v float32) int16 {
	return int16(clampInt(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
}

// wavHeader writes a wave header for either a float32 or an int16 stereo .wav
// file. bufferLength is the total number of interleaved samples, so the
// length in stereo frames is bufferLength / 2.
func wavHeader(bufferLength, sampleRate int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := 2
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))              // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/2)) // length in frames
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
