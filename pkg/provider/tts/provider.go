// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// presents a uniform one-shot interface: text in, decoded audio out. The
// orchestrator caches the returned buffers, so providers do not need to
// implement caching themselves.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/bottega-vr/bottega/pkg/audio"
	"github.com/bottega-vr/bottega/pkg/types"
)

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel (e.g., multiple character instances at
// once). Failures are reported as *apierr.Error.
type Provider interface {
	// Synthesize renders text with the given voice and returns the fully
	// decoded audio. Empty text is rejected with an invalid-input error
	// before any network round trip.
	Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (*audio.Buffer, error)

	// ListVoices returns all voice profiles available from this provider.
	// The list reflects the provider's current catalogue and may change
	// between calls. It doubles as a credential check: an invalid API key
	// surfaces here as an upstream rejection.
	ListVoices(ctx context.Context) ([]types.VoiceProfile, error)

	// Name returns the stable provider identifier used in logs, metrics
	// and configuration (e.g., "elevenlabs").
	Name() string
}
