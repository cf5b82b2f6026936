// Package types defines the shared types used across all Bottega packages.
//
// These types form the lingua franca between providers, the character
// layer, and the orchestrator. Individual packages define their own
// domain types, but cross-cutting data structures live here to avoid
// circular imports.
package types

// VoiceProfile identifies a synthesis voice and its tuning parameters.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Stability controls how consistent the voice sounds across renders
	// (0.0–1.0). Lower values give more expressive, varied delivery.
	Stability float64

	// SimilarityBoost controls adherence to the reference voice (0.0–1.0).
	SimilarityBoost float64

	// Style exaggeration (0.0–1.0). Most voices work best at 0.
	Style float64

	// SpeakerBoost enables similarity post-processing at a small latency cost.
	SpeakerBoost bool
}

// Exchange is one completed visitor/character turn. The character reply
// is the clean text with any leading marker already stripped.
type Exchange struct {
	Visitor   string
	Character string
}
