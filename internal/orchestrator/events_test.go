package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/bottega-vr/bottega/internal/character"
)

func TestPublisher_ZeroSubscribers(t *testing.T) {
	p := NewPublisher()
	// Must not panic or block.
	p.PublishMarker(MarkerEvent{Label: "NORMAL"})
	p.PublishAudio(AudioEvent{Buffer: testBuffer()})
}

func TestPublisher_FanOut(t *testing.T) {
	p := NewPublisher()

	var wg sync.WaitGroup
	wg.Add(3)
	got := make(chan string, 3)
	for _, name := range []string{"a", "b", "c"} {
		p.SubscribeMarker(func(ev MarkerEvent) {
			got <- name + ":" + ev.Label
			wg.Done()
		})
	}

	p.PublishMarker(MarkerEvent{Label: "PAINTING", Cue: character.CuePainting})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all subscribers received the event")
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[<-got] = true
	}
	for _, want := range []string{"a:PAINTING", "b:PAINTING", "c:PAINTING"} {
		if !seen[want] {
			t.Errorf("missing delivery %q", want)
		}
	}
}

func TestPublisher_SlowSubscriberDoesNotBlock(t *testing.T) {
	p := NewPublisher()
	release := make(chan struct{})
	p.SubscribeAudio(func(AudioEvent) { <-release })

	start := time.Now()
	p.PublishAudio(AudioEvent{Buffer: testBuffer()})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publish blocked for %v", elapsed)
	}
	close(release)
}
