// Package orchestrator sequences a complete conversation turn for one
// character: prompt construction, LLM completion, marker parsing, history
// update, audio cache lookup, TTS synthesis, and event publication.
//
// Each character owns exactly one Orchestrator. Turns are single-flight: a
// turn requested while another is in flight is rejected with [ErrBusy], not
// queued. External failures never abort a turn — an LLM failure substitutes
// an in-character fallback line, a TTS failure drops the audio, and the
// textual exchange always completes.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bottega-vr/bottega/internal/audiocache"
	"github.com/bottega-vr/bottega/internal/character"
	"github.com/bottega-vr/bottega/internal/observe"
	"github.com/bottega-vr/bottega/internal/transcript"
	"github.com/bottega-vr/bottega/pkg/audio"
	"github.com/bottega-vr/bottega/pkg/provider/apierr"
	"github.com/bottega-vr/bottega/pkg/provider/llm"
	"github.com/bottega-vr/bottega/pkg/provider/tts"
	"github.com/bottega-vr/bottega/pkg/types"
)

var (
	// ErrBusy is returned when a turn is requested while another turn is
	// still in flight. The rejected turn has no side effects.
	ErrBusy = errors.New("orchestrator: turn already in flight")

	// ErrEmptyInput is returned for empty or whitespace-only visitor input.
	// The rejected turn has no side effects.
	ErrEmptyInput = errors.New("orchestrator: empty input")
)

// In-character apology lines substituted when the LLM cannot produce a
// reply. Fallback replies are never synthesized or cached.
const (
	fallbackUnavailable = "Mi dispiace, I am momentarily lost in thought..."
	fallbackMalformed   = "Mi dispiace, I am having trouble forming my thoughts..."
)

// defaultCallTimeout bounds each external network call so a hung connection
// cannot hold the single-flight guard indefinitely.
const defaultCallTimeout = 30 * time.Second

// Default sampling parameters for character replies.
const (
	defaultTemperature = 0.9
	defaultTopK        = 40
	defaultTopP        = 0.8
	defaultMaxTokens   = 256
)

// defaultStopSequences cut the model off before it starts inventing the
// visitor's side of the conversation.
var defaultStopSequences = []string{"User:", "Visitor:"}

// Config carries the collaborators and tunables for an [Orchestrator].
// LLM, TTS, Context, and History are required; everything else has a
// working default.
type Config struct {
	// Character is the display name used in events and archive records.
	// Defaults to the persona name from Context.
	Character string

	// LLM generates character replies.
	LLM llm.Provider

	// TTS synthesizes reply audio.
	TTS tts.Provider

	// Voice is the profile passed to the TTS provider.
	Voice types.VoiceProfile

	// Context builds prompts from persona and workshop state.
	Context *character.Context

	// History is the bounded conversation history for this character.
	History *character.History

	// Cache deduplicates TTS synthesis for repeated replies. Defaults to a
	// new cache with standard limits.
	Cache *audiocache.Cache

	// Archive durably records completed turns. Best-effort; append failures
	// are logged, never fatal. Defaults to [transcript.Nop].
	Archive transcript.Store

	// Publisher fans out marker and audio events. Defaults to a new
	// publisher with no listeners.
	Publisher *Publisher

	// Metrics records pipeline instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// SpatialAnchor names the world anchor attached to audio events.
	SpatialAnchor string

	// CallTimeout bounds each LLM and TTS call. Default: 30s.
	CallTimeout time.Duration

	// Sampling overrides. Zero values take the package defaults.
	Temperature   float64
	TopK          int
	TopP          float64
	MaxTokens     int
	StopSequences []string
}

// Turn is the result of one completed conversation turn.
type Turn struct {
	// ID uniquely identifies the turn.
	ID string

	// Input is the visitor utterance, trimmed.
	Input string

	// Reply is the clean character reply with the marker prefix removed.
	Reply string

	// Marker is the parsed marker variant.
	Marker character.Marker

	// Label is the raw marker label from the reply.
	Label string

	// Cue is the animation cue derived from Marker.
	Cue character.AnimationCue

	// Audio holds the synthesized speech, or nil when synthesis failed or
	// the reply is a fallback line.
	Audio *audio.Buffer

	// Cached reports whether Audio came from the cache.
	Cached bool

	// Fallback reports whether Reply is a substituted apology line rather
	// than a real LLM reply.
	Fallback bool
}

// Orchestrator runs the turn pipeline for a single character. Safe for
// concurrent use; concurrent turns beyond the first are rejected.
type Orchestrator struct {
	cfg      Config
	inFlight atomic.Bool
}

// New validates cfg, fills defaults, and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.LLM == nil {
		return nil, errors.New("orchestrator: LLM provider is required")
	}
	if cfg.TTS == nil {
		return nil, errors.New("orchestrator: TTS provider is required")
	}
	if cfg.Context == nil {
		return nil, errors.New("orchestrator: character context is required")
	}
	if cfg.History == nil {
		return nil, errors.New("orchestrator: history is required")
	}
	if cfg.Character == "" {
		cfg.Character = cfg.Context.Persona().Name
	}
	if cfg.Cache == nil {
		cfg.Cache = audiocache.New()
	}
	if cfg.Archive == nil {
		cfg.Archive = transcript.Nop{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NewPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopK == 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.StopSequences == nil {
		cfg.StopSequences = defaultStopSequences
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Character returns the display name of the character this orchestrator
// drives.
func (o *Orchestrator) Character() string {
	return o.cfg.Character
}

// Publisher returns the event publisher so callers can register listeners.
func (o *Orchestrator) Publisher() *Publisher {
	return o.cfg.Publisher
}

// Busy reports whether a turn is currently in flight.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

// ResetSession clears the conversation history and the audio cache,
// returning the character to a fresh-session state for the next visitor.
// Like [ProcessTurn] it is rejected with [ErrBusy] while a turn is in
// flight rather than waiting for it.
func (o *Orchestrator) ResetSession() error {
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.inFlight.Store(false)

	o.cfg.History.Clear()
	o.cfg.Cache.Clear()
	o.cfg.Logger.Info("session reset", "character", o.cfg.Character)
	return nil
}

// ProcessTurn runs one complete turn for the given visitor input.
//
// Empty or whitespace-only input returns [ErrEmptyInput]; a turn requested
// while another is in flight returns [ErrBusy]. Both are rejected before any
// state change or network call. All other failures degrade rather than
// propagate: the returned Turn always carries a reply, possibly a fallback
// line, possibly without audio.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input string) (*Turn, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		o.cfg.Metrics.RejectedTurns.Add(ctx, 1)
		return nil, ErrBusy
	}
	// Guard release is unconditional; no exit path may leave it set.
	defer o.inFlight.Store(false)

	o.cfg.Metrics.ActiveTurns.Add(ctx, 1)
	defer o.cfg.Metrics.ActiveTurns.Add(ctx, -1)

	ctx, span := observe.StartSpan(ctx, "orchestrator.turn")
	defer span.End()

	start := time.Now()
	turn := &Turn{
		ID:    uuid.NewString(),
		Input: input,
	}
	log := o.cfg.Logger.With("character", o.cfg.Character, "turn_id", turn.ID)

	raw := o.complete(ctx, input, turn, log)

	env := character.ParseEnvelope(strings.TrimSpace(raw))
	turn.Reply = env.Text
	turn.Marker = env.Marker
	turn.Label = env.Label
	turn.Cue = env.Marker.Cue()
	if !env.Known {
		log.Warn("unknown marker in reply", "label", env.Label)
	}

	// The textual exchange happened even when audio later fails, so history
	// is updated before synthesis.
	o.cfg.History.Add(input, env.Text)

	o.cfg.Publisher.PublishMarker(MarkerEvent{
		TurnID:    turn.ID,
		Character: o.cfg.Character,
		Marker:    turn.Marker,
		Label:     turn.Label,
		Cue:       turn.Cue,
		Text:      turn.Reply,
	})

	if !turn.Fallback {
		o.synthesize(ctx, turn, log)
	}

	if turn.Audio != nil {
		o.cfg.Publisher.PublishAudio(AudioEvent{
			TurnID:        turn.ID,
			Character:     o.cfg.Character,
			Buffer:        turn.Audio,
			SpatialAnchor: o.cfg.SpatialAnchor,
			Cached:        turn.Cached,
		})
	}

	o.archive(ctx, turn, log)

	outcome := "ok"
	if turn.Fallback {
		outcome = "fallback"
	}
	o.cfg.Metrics.RecordTurn(ctx, o.cfg.Character, outcome)
	o.cfg.Metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())

	log.Info("turn completed",
		"marker", turn.Label,
		"cached", turn.Cached,
		"fallback", turn.Fallback,
		"has_audio", turn.Audio != nil,
		"duration", time.Since(start))
	return turn, nil
}

// complete calls the LLM and returns the raw reply. On failure it logs,
// marks the turn as a fallback, and returns an in-character apology wrapped
// in a NORMAL marker.
func (o *Orchestrator) complete(ctx context.Context, input string, turn *Turn, log *slog.Logger) string {
	prompt := o.cfg.Context.BuildPrompt(input, o.cfg.History.Formatted())

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	llmStart := time.Now()
	resp, err := o.cfg.LLM.Complete(callCtx, llm.CompletionRequest{
		Prompt:        prompt,
		Temperature:   o.cfg.Temperature,
		TopK:          o.cfg.TopK,
		TopP:          o.cfg.TopP,
		MaxTokens:     o.cfg.MaxTokens,
		StopSequences: o.cfg.StopSequences,
	})
	o.cfg.Metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())

	if err != nil {
		kind := apierr.Classify(err)
		log.Error("llm call failed, substituting fallback reply",
			"provider", o.cfg.LLM.Name(), "kind", kind.String(), "error", err)
		o.cfg.Metrics.RecordProviderError(ctx, o.cfg.LLM.Name(), "llm")
		o.cfg.Metrics.RecordProviderRequest(ctx, o.cfg.LLM.Name(), "llm", "error")

		turn.Fallback = true
		line := fallbackUnavailable
		if kind == apierr.KindMalformedResponse {
			line = fallbackMalformed
		}
		return "[NORMAL] " + line
	}
	o.cfg.Metrics.RecordProviderRequest(ctx, o.cfg.LLM.Name(), "llm", "ok")
	return resp.Content
}

// synthesize fills turn.Audio from the cache or the TTS provider. A TTS
// failure leaves turn.Audio nil; the turn still completes.
func (o *Orchestrator) synthesize(ctx context.Context, turn *Turn, log *slog.Logger) {
	if buf := o.cfg.Cache.Get(turn.Reply); buf != nil {
		o.cfg.Metrics.RecordCacheHit(ctx, o.cfg.Character)
		turn.Audio = buf
		turn.Cached = true
		return
	}
	o.cfg.Metrics.RecordCacheMiss(ctx, o.cfg.Character)

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	ttsStart := time.Now()
	buf, err := o.cfg.TTS.Synthesize(callCtx, turn.Reply, o.cfg.Voice)
	o.cfg.Metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())

	if err != nil {
		log.Error("tts call failed, turn continues without audio",
			"provider", o.cfg.TTS.Name(), "kind", apierr.Classify(err).String(), "error", err)
		o.cfg.Metrics.RecordProviderError(ctx, o.cfg.TTS.Name(), "tts")
		o.cfg.Metrics.RecordProviderRequest(ctx, o.cfg.TTS.Name(), "tts", "error")
		return
	}
	o.cfg.Metrics.RecordProviderRequest(ctx, o.cfg.TTS.Name(), "tts", "ok")

	o.cfg.Cache.Put(turn.Reply, buf)
	turn.Audio = buf
}

// archive appends the turn to the transcript store. Failures are logged and
// otherwise ignored.
func (o *Orchestrator) archive(ctx context.Context, turn *Turn, log *slog.Logger) {
	err := o.cfg.Archive.Append(ctx, &transcript.Turn{
		ID:        turn.ID,
		Character: o.cfg.Character,
		Visitor:   turn.Input,
		Reply:     turn.Reply,
		Marker:    turn.Label,
		Cached:    turn.Cached,
		Fallback:  turn.Fallback,
	})
	if err != nil {
		log.Warn("transcript append failed", "error", err)
	}
}
