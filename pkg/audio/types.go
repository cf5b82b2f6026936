package audio

import "time"

// Buffer holds a fully decoded clip of audio as float32 samples in the
// range [-1, 1]. Buffers are the unit handed from TTS providers to the
// cache and to event subscribers; they are never mutated after creation.
type Buffer struct {
	// Samples interleaved by channel.
	Samples []float32

	// SampleRate in Hz (e.g., 44100 for ElevenLabs PCM output).
	SampleRate int

	// Channels: 1 for mono TTS output.
	Channels int
}

// Duration returns the playback length of the buffer. It returns zero
// when the buffer carries no samples or an invalid rate.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Empty reports whether the buffer carries no audio.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}
