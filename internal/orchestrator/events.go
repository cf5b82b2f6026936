package orchestrator

import (
	"sync"

	"github.com/bottega-vr/bottega/internal/character"
	"github.com/bottega-vr/bottega/pkg/audio"
)

// MarkerEvent notifies animation consumers of the marker parsed from a
// character reply. Consumers with no mapping for Marker should fall back to
// their idle/talking behaviour.
type MarkerEvent struct {
	// TurnID identifies the turn that produced this event.
	TurnID string

	// Character is the name of the character that spoke.
	Character string

	// Marker is the parsed marker variant.
	Marker character.Marker

	// Label is the raw marker label from the reply. For unknown labels this
	// preserves the original text while Marker is MarkerNormal.
	Label string

	// Cue is the animation cue derived from Marker.
	Cue character.AnimationCue

	// Text is the clean reply text with the marker prefix removed.
	Text string
}

// AudioEvent delivers synthesized speech to the playback consumer.
type AudioEvent struct {
	// TurnID identifies the turn that produced this event.
	TurnID string

	// Character is the name of the character that spoke.
	Character string

	// Buffer holds the PCM samples to play. Never nil; turns without audio
	// do not produce an AudioEvent.
	Buffer *audio.Buffer

	// SpatialAnchor names the world-space anchor the playback consumer
	// should position the audio source at. May be empty.
	SpatialAnchor string

	// Cached reports whether the audio came from the cache rather than a
	// fresh synthesis call.
	Cached bool
}

// MarkerListener receives marker events. Listeners run on their own
// goroutine and may block without stalling the turn pipeline.
type MarkerListener func(MarkerEvent)

// AudioListener receives audio events. Same delivery semantics as
// [MarkerListener].
type AudioListener func(AudioEvent)

// Publisher fans out turn events to registered listeners. Publishing is
// non-blocking: each listener is invoked on a dedicated goroutine, and a
// publisher with zero listeners is valid.
//
// Delivery order across events is not guaranteed; listeners that care about
// ordering should serialize internally (e.g. drain into a channel).
type Publisher struct {
	mu         sync.RWMutex
	markerSubs []MarkerListener
	audioSubs  []AudioListener
}

// NewPublisher returns an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// SubscribeMarker registers a listener for marker events.
func (p *Publisher) SubscribeMarker(fn MarkerListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markerSubs = append(p.markerSubs, fn)
}

// SubscribeAudio registers a listener for audio events.
func (p *Publisher) SubscribeAudio(fn AudioListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audioSubs = append(p.audioSubs, fn)
}

// PublishMarker delivers ev to all marker listeners without blocking the
// caller.
func (p *Publisher) PublishMarker(ev MarkerEvent) {
	p.mu.RLock()
	subs := p.markerSubs
	p.mu.RUnlock()
	for _, fn := range subs {
		go fn(ev)
	}
}

// PublishAudio delivers ev to all audio listeners without blocking the
// caller.
func (p *Publisher) PublishAudio(ev AudioEvent) {
	p.mu.RLock()
	subs := p.audioSubs
	p.mu.RUnlock()
	for _, fn := range subs {
		go fn(ev)
	}
}
