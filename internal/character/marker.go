// Package character holds the conversational identity of a museum
// character: its persona prompt, the marker vocabulary its replies are
// tagged with, and the bounded memory of recent exchanges.
package character

import "strings"

// Marker classifies a character reply for the presentation layer. The
// set is closed; replies tagged with anything else fall back to
// MarkerNormal with the original label preserved for logging.
type Marker int

const (
	// MarkerNormal is general conversation.
	MarkerNormal Marker = iota

	// MarkerMonaLisa tags replies about La Gioconda.
	MarkerMonaLisa

	// MarkerVitruvian tags replies about proportions and the Vitruvian Man.
	MarkerVitruvian

	// MarkerInvention tags replies about machines and inventions.
	MarkerInvention

	// MarkerPainting tags replies about art techniques.
	MarkerPainting

	// MarkerMeasure tags requests to measure the visitor.
	MarkerMeasure
)

// AnimationCue names the animation state a marker maps to.
type AnimationCue string

const (
	CueTalking   AnimationCue = "talking"
	CuePainting  AnimationCue = "painting"
	CueMeasuring AnimationCue = "measuring"
	CueInventing AnimationCue = "inventing"
)

var markerNames = map[Marker]string{
	MarkerNormal:    "NORMAL",
	MarkerMonaLisa:  "MONA_LISA",
	MarkerVitruvian: "VITRUVIAN",
	MarkerInvention: "INVENTION",
	MarkerPainting:  "PAINTING",
	MarkerMeasure:   "MEASURE",
}

// String returns the wire label of the marker (e.g., "MONA_LISA").
func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	return "NORMAL"
}

// Cue returns the animation state the marker drives.
func (m Marker) Cue() AnimationCue {
	switch m {
	case MarkerMonaLisa, MarkerPainting:
		return CuePainting
	case MarkerVitruvian, MarkerMeasure:
		return CueMeasuring
	case MarkerInvention:
		return CueInventing
	default:
		return CueTalking
	}
}

// ParseMarker maps a label to its Marker. Comparison is case-insensitive.
// Unknown labels return MarkerNormal and false.
func ParseMarker(label string) (Marker, bool) {
	upper := strings.ToUpper(strings.TrimSpace(label))
	for m, name := range markerNames {
		if name == upper {
			return m, true
		}
	}
	return MarkerNormal, false
}
