package resilience

import (
	"context"
	"strings"

	"github.com/bottega-vr/bottega/pkg/audio"
	"github.com/bottega-vr/bottega/pkg/provider/tts"
	"github.com/bottega-vr/bottega/pkg/types"
)

// TTSFallback implements [tts.Provider] with automatic failover across
// multiple TTS backends. Each backend has its own circuit breaker.
//
// Note that the configured voice ID is provider-specific; fallbacks
// should be configured with voices that exist on their backend, or the
// fallback will reject the request and the group moves on.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Provider, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(provider tts.Provider) {
	f.group.AddFallback(provider, provider.Name())
}

// Synthesize renders text with the first healthy provider.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (*audio.Buffer, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (*audio.Buffer, error) {
		return p.Synthesize(ctx, text, voice)
	})
}

// ListVoices returns available voices from the first healthy provider.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]types.VoiceProfile, error) {
		return p.ListVoices(ctx)
	})
}

// Name returns the joined names of the composed backends.
func (f *TTSFallback) Name() string {
	return strings.Join(f.group.Names(), "+")
}
