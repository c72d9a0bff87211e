// Package hd44780 is the decoder of the HD44780 character display controller.
//
// The decoder is fed with snapshots of the controller's input lines and
// latches a transfer on the falling edge of the enable line. In 4 bit mode
// two transfers (high nibble first) form one byte; in 8 bit mode each
// transfer carries a full byte. The register select line classifies the
// byte as command or data.
package hd44780

import (
	"errors"
	"fmt"
	"strings"

	"github.com/womat/debug"
	"lcdsniff/pkg/port"
)

// ErrInvalidBusMode is returned for an unknown bus mode name.
var ErrInvalidBusMode = errors.New("invalid lcd bus mode")

// Line assignment of the controller inputs.
//
// 4 bit mode, as wired by a PCF8574 backpack:
//
//	line: | 0  | 1  | 2 | 3  | 4  | 5  | 6  | 7  |
//	lcd:  | RS | RW | E | NC | D4 | D5 | D6 | D7 |
//
// 8 bit mode:
//
//	line: | 0  | 1  | 2 | 3  | 4  | .. | 10 |
//	lcd:  | RS | RW | E | D0 | D1 | .. | D7 |
const (
	LineRS     = 0
	LineRW     = 1
	LineEnable = 2
)

// BusMode is the width of the controller's data bus.
type BusMode int

const (
	// Bus4Bit is the nibble multiplexed mode, a byte is transferred as two nibbles.
	Bus4Bit BusMode = iota
	// Bus8Bit transfers a full byte at once.
	Bus8Bit
)

// ParseBusMode parses "4bit" or "8bit".
func ParseBusMode(s string) (BusMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "4bit", "4", "":
		return Bus4Bit, nil
	case "8bit", "8":
		return Bus8Bit, nil
	}
	return Bus4Bit, fmt.Errorf("%w: %q", ErrInvalidBusMode, s)
}

func (m BusMode) String() string {
	if m == Bus8Bit {
		return "8bit"
	}
	return "4bit"
}

// lines returns the number of lines a transfer needs.
func (m BusMode) lines() int {
	if m == Bus8Bit {
		return 11
	}
	return 8
}

// data returns the data lines, the most significant bit first.
func (m BusMode) data() []int {
	if m == Bus8Bit {
		return []int{10, 9, 8, 7, 6, 5, 4, 3}
	}
	return []int{7, 6, 5, 4}
}

// Mode is the register selected by the RS line.
type Mode int

const (
	// ModeCommand is RS low: the byte is an instruction.
	ModeCommand Mode = iota
	// ModeData is RS high: the byte is written to display RAM.
	ModeData
)

func (m Mode) String() string {
	if m == ModeData {
		return "data"
	}
	return "command"
}

// MarshalText renders the mode in records.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// DecodedByte is a byte transferred to the controller.
type DecodedByte struct {
	Value byte      `json:"value"`
	Mode  Mode      `json:"mode"`
	Span  port.Span `json:"span"`
}

// EventKind is the kind of event emitted by the decoder.
type EventKind int

const (
	// EventRS, EventRW and EventEnable report the control lines of each sample.
	EventRS EventKind = iota
	EventRW
	EventEnable
	// EventNibble is a latched nibble in 4 bit mode.
	EventNibble
	// EventCommand is a complete command byte.
	EventCommand
	// EventData is a complete data byte.
	EventData
	// EventWarning reports a malformed transfer.
	EventWarning
)

// Event is emitted by the decoder.
type Event struct {
	Kind EventKind
	Span port.Span
	// Level is the line level of EventRS, EventRW and EventEnable.
	Level port.StateType
	// Slot is the accumulator slot of EventNibble.
	Slot int
	// Value is the nibble or byte value.
	Value   byte
	Mode    Mode
	Command Command
	Symbol  Symbol
	Message string
}

// Byte returns the decoded byte of an EventCommand or EventData.
func (e Event) Byte() (DecodedByte, bool) {
	if e.Kind != EventCommand && e.Kind != EventData {
		return DecodedByte{}, false
	}
	return DecodedByte{Value: e.Value, Mode: e.Mode, Span: e.Span}, true
}

// Annotation renders the event for visualization tools.
func (e Event) Annotation() port.Annotation {
	a := port.Annotation{Span: e.Span, Layer: "hd44780"}
	switch e.Kind {
	case EventRS:
		a.Class = "lcd_rs"
		a.Label = "CMD"
		if e.Level == port.High {
			a.Label = "DATA"
		}
	case EventRW:
		a.Class = "lcd_rw"
		a.Label = "WRITE"
		if e.Level == port.High {
			a.Label = "READ"
		}
	case EventEnable:
		a.Class = "lcd_en"
		a.Label = fmt.Sprintf("%d", e.Level)
	case EventNibble:
		a.Class = "data-write-nibble"
		if e.Mode == ModeCommand {
			a.Class = "cmd-write-nibble"
		}
		a.Label = fmt.Sprintf("NIBBLE %d = 0x%x", e.Slot, e.Value)
	case EventCommand:
		a.Class = "cmd-write"
		a.Label = e.Command.String()
	case EventData:
		a.Class = "data-write"
		a.Label = e.Symbol.String()
	case EventWarning:
		a.Class = "warning"
		a.Label = e.Message
	}
	return a
}

// stateType represents the state of the decoding process.
type stateType int

const (
	// idle waits for the enable line to be asserted.
	idle stateType = iota
	// latch waits for the falling edge of the enable line.
	latch
)

// Decoder contains the state machine of one display controller.
type Decoder struct {
	mode  BusMode
	state stateType
	// nibbles is the accumulator of the 4 bit mode, current is the slot to be filled next.
	nibbles [2]byte
	current int
	// dataStart is the enable assertion of the first nibble, latchStart of the current transfer.
	dataStart  uint64
	latchStart uint64
}

// New returns a decoder for the given bus mode. The mode is fixed for the
// lifetime of the decoder.
func New(mode BusMode) *Decoder {
	return &Decoder{mode: mode}
}

// Mode returns the bus mode of the decoder.
func (d *Decoder) Mode() BusMode {
	return d.mode
}

// Reset clears the accumulator and waits for the next enable assertion.
func (d *Decoder) Reset() {
	d.state = idle
	d.nibbles = [2]byte{}
	d.current = 0
}

// Feed processes the next snapshot of the controller lines.
// A snapshot with too few lines is reported as EventWarning and leaves the decoder untouched.
func (d *Decoder) Feed(l port.Logic) []Event {
	if n := len(l.Lines); n < d.mode.lines() {
		msg := fmt.Sprintf("%s transfer needs %d lines, got %d", d.mode, d.mode.lines(), n)
		debug.ErrorLog.Printf("hd44780: %s at %s", msg, l.Span)
		return []Event{{Kind: EventWarning, Span: l.Span, Message: msg}}
	}

	rs, rw, en := l.Lines[LineRS], l.Lines[LineRW], l.Lines[LineEnable]
	events := []Event{
		{Kind: EventRS, Span: l.Span, Level: rs},
		{Kind: EventRW, Span: l.Span, Level: rw},
		{Kind: EventEnable, Span: l.Span, Level: en},
	}

	mode := ModeCommand
	if rs == port.High {
		mode = ModeData
	}

	switch d.state {
	case idle:
		if en == port.High {
			d.latchStart = l.Span.Start
			if d.current == 0 {
				d.dataStart = l.Span.Start
			}
			d.state = latch
		}

	case latch:
		// the controller latches the data on the falling edge
		if en == port.Low {
			d.state = idle
			events = append(events, d.latch(l, mode)...)
		}
	}

	return events
}

// latch stores the transfer held on the data lines.
func (d *Decoder) latch(l port.Logic, mode Mode) []Event {
	value := l.Bits(d.mode.data()...)

	if d.mode == Bus8Bit {
		return []Event{classify(value, mode, port.Span{Start: d.latchStart, End: l.Span.End})}
	}

	d.nibbles[d.current] = value
	events := []Event{{
		Kind:  EventNibble,
		Span:  port.Span{Start: d.latchStart, End: l.Span.End},
		Slot:  d.current,
		Value: value,
		Mode:  mode,
	}}

	d.current ^= 1
	if d.current == 0 {
		b := d.nibbles[0]<<4 | d.nibbles[1]
		events = append(events, classify(b, mode, port.Span{Start: d.dataStart, End: l.Span.End}))
	}

	return events
}

// classify returns the command or data event of a complete byte.
func classify(b byte, mode Mode, span port.Span) Event {
	if mode == ModeData {
		return Event{Kind: EventData, Span: span, Value: b, Mode: ModeData, Symbol: Classify(b)}
	}
	return Event{Kind: EventCommand, Span: span, Value: b, Mode: ModeCommand, Command: Lookup(b)}
}
