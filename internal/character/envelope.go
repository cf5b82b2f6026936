package character

import "strings"

// Envelope is a character reply split into its marker and clean text.
type Envelope struct {
	// Marker is the classified marker, MarkerNormal when the reply
	// carried none or an unknown one.
	Marker Marker

	// Label is the literal marker text as the model wrote it, upper-cased.
	// "NORMAL" when the reply carried no marker.
	Label string

	// Text is the reply with the marker prefix stripped. Never contains
	// a leading marker and never loses reply content.
	Text string

	// Known is false when the reply carried a label outside the closed
	// marker set.
	Known bool
}

// ParseEnvelope splits a raw model reply into marker and clean text.
//
// A reply opening with "[" (leading whitespace tolerated) and containing
// "]" yields the text between the brackets as the label and everything
// after the closing bracket, left-trimmed, as the text. Anything else,
// including an unterminated "[", is treated as an unmarked NORMAL reply
// with the full text kept.
func ParseEnvelope(raw string) Envelope {
	lead := strings.TrimLeft(raw, " \t\r\n")
	if strings.HasPrefix(lead, "[") {
		if end := strings.Index(lead, "]"); end >= 0 {
			label := strings.ToUpper(lead[1:end])
			text := strings.TrimLeft(lead[end+1:], " \t\r\n")
			marker, known := ParseMarker(label)
			return Envelope{Marker: marker, Label: label, Text: text, Known: known}
		}
	}
	return Envelope{Marker: MarkerNormal, Label: "NORMAL", Text: raw, Known: true}
}
