package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/bottega-vr/bottega/pkg/audio"
	ttsmock "github.com/bottega-vr/bottega/pkg/provider/tts/mock"
	"github.com/bottega-vr/bottega/pkg/types"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	buf := &audio.Buffer{Samples: []float32{0.1, 0.2}, SampleRate: 44100, Channels: 1}
	primary := &ttsmock.Provider{ProviderName: "elevenlabs", SynthesizeBuffer: buf}
	fallback := &ttsmock.Provider{ProviderName: "backup"}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(fallback)

	got, err := f.Synthesize(context.Background(), "Buongiorno!", types.VoiceProfile{ID: "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != buf {
		t.Fatal("expected primary's buffer")
	}
	if len(fallback.Calls()) != 0 {
		t.Fatal("fallback should not be called when primary succeeds")
	}
}

func TestTTSFallback_FailoverToSecondary(t *testing.T) {
	buf := &audio.Buffer{Samples: []float32{0.5}, SampleRate: 44100, Channels: 1}
	primary := &ttsmock.Provider{ProviderName: "elevenlabs", SynthesizeErr: errors.New("down")}
	fallback := &ttsmock.Provider{ProviderName: "backup", SynthesizeBuffer: buf}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(fallback)

	got, err := f.Synthesize(context.Background(), "hello", types.VoiceProfile{ID: "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != buf {
		t.Fatal("expected fallback's buffer")
	}
	if len(primary.Calls()) != 1 {
		t.Fatalf("primary calls = %d, want 1", len(primary.Calls()))
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{ProviderName: "elevenlabs", SynthesizeErr: errors.New("down")}
	fallback := &ttsmock.Provider{ProviderName: "backup", SynthesizeErr: errors.New("also down")}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(fallback)

	_, err := f.Synthesize(context.Background(), "hello", types.VoiceProfile{ID: "v1"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTTSFallback_ListVoices(t *testing.T) {
	voices := []types.VoiceProfile{{ID: "v1", Name: "Leonardo"}}
	primary := &ttsmock.Provider{ProviderName: "elevenlabs", ListVoicesErr: errors.New("down")}
	fallback := &ttsmock.Provider{ProviderName: "backup", Voices: voices}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(fallback)

	got, err := f.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "v1" {
		t.Fatalf("voices = %v", got)
	}
	if primary.ListVoicesCallCount != 1 {
		t.Fatalf("primary list calls = %d, want 1", primary.ListVoicesCallCount)
	}
}

func TestTTSFallback_Name(t *testing.T) {
	primary := &ttsmock.Provider{ProviderName: "elevenlabs"}
	fallback := &ttsmock.Provider{ProviderName: "backup"}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(fallback)

	if got := f.Name(); got != "elevenlabs+backup" {
		t.Fatalf("Name() = %q, want elevenlabs+backup", got)
	}
}
