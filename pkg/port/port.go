// Package port holds the definition of a physical port and the event shapes
// shared between the decoding layers.
package port

import "fmt"

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	// NoEdge indicates that the line level didn't change.
	NoEdge EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// StateType is the level of a single line.
type StateType int

const (
	// High indicates a logical 1.
	High StateType = 1
	// Low indicates a logical 0.
	Low StateType = 0
	// Invalid indicates an unknown or invalid state.
	Invalid StateType = -1
)

// Level converts a bool to a line state.
func Level(b bool) StateType {
	if b {
		return High
	}
	return Low
}

// Edge returns the edge between the previous and the current state of a line.
// Transitions from or to Invalid are not edges.
func Edge(prev, cur StateType) EventType {
	switch {
	case prev == Low && cur == High:
		return RisingEdge
	case prev == High && cur == Low:
		return FallingEdge
	default:
		return NoEdge
	}
}

// Span is the position of an event in the original sample stream.
// Start <= End; spans of consecutive events of one stream don't overlap.
type Span struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Join returns the span from the start of s to the end of e.
func (s Span) Join(e Span) Span {
	return Span{Start: s.Start, End: e.End}
}

// Logic is a snapshot of a set of parallel lines.
// Lines[i] is the level of line i.
type Logic struct {
	Span  Span
	Lines []StateType
}

// Bits returns the value of the given lines, the first line is the most significant bit.
func (l Logic) Bits(lines ...int) byte {
	var b byte
	for _, n := range lines {
		b <<= 1
		if n < len(l.Lines) && l.Lines[n] == High {
			b |= 1
		}
	}
	return b
}

// Annotation is a human readable label for a span of the sample stream.
type Annotation struct {
	Span  Span   `json:"span"`
	Layer string `json:"layer"`
	Class string `json:"class"`
	Label string `json:"label"`
}

func (a Annotation) String() string {
	return fmt.Sprintf("%s %s/%s: %s", a.Span, a.Layer, a.Class, a.Label)
}
