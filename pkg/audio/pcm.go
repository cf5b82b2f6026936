package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodePCM16 converts raw little-endian signed 16-bit PCM into a Buffer
// of float32 samples. It rejects empty input and payloads with a dangling
// byte, since both indicate a truncated upstream response.
func DecodePCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: empty PCM payload")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("audio: odd PCM payload length %d", len(data))
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("audio: invalid format %d Hz / %d ch", sampleRate, channels)
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// EncodePCM16 converts a Buffer back into little-endian signed 16-bit
// PCM, clamping samples outside [-1, 1].
func EncodePCM16(b *Buffer) []byte {
	if b.Empty() {
		return nil
	}
	out := make([]byte, len(b.Samples)*2)
	for i, f := range b.Samples {
		v := math.Round(float64(f) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
