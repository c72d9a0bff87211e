// Package pcf8574 is the decoder of the PCF8574 8 bit I2C I/O expander.
// It filters the bus transactions of one device address and reinterprets each
// transferred byte as the state of the expander's 8 quasi-bidirectional pins.
package pcf8574

import (
	"fmt"

	"github.com/womat/debug"
	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/port"
)

// DefaultAddress is the unshifted bus address of a PCF8574 with A0..A2 pulled high,
// the usual setting of LCD backpacks.
const DefaultAddress = 0x27

// Lines is the number of I/O pins of the expander.
const Lines = 8

// Direction is the direction of a port transfer seen from the bus controller.
type Direction int

const (
	Write Direction = iota
	Read
)

func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// MarshalText renders the direction in records.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// EventKind is the kind of event emitted by the decoder.
type EventKind int

const (
	// EventAddress is the address phase of a transfer to the configured device.
	EventAddress EventKind = iota
	// EventByte is a full snapshot of the expander pins.
	EventByte
)

// Event is emitted for each transfer of the configured device.
type Event struct {
	Kind      EventKind
	Value     byte
	Direction Direction
	Span      port.Span
}

// Logic expands the port byte to the line levels of the expander pins.
// Line i is pin Pi, which is how the pins of an LCD backpack are wired:
// P0=RS, P1=RW, P2=E, P3=backlight, P4..P7=D4..D7.
func (e Event) Logic() port.Logic {
	l := port.Logic{Span: e.Span, Lines: make([]port.StateType, Lines)}
	for i := 0; i < Lines; i++ {
		l.Lines[i] = port.Level(e.Value&(1<<i) != 0)
	}
	return l
}

// Annotation renders the event for visualization tools.
func (e Event) Annotation() port.Annotation {
	a := port.Annotation{Span: e.Span, Layer: "pcf8574"}
	switch e.Kind {
	case EventAddress:
		a.Class = "text"
		a.Label = fmt.Sprintf("Address 0x%02x %s", e.Value, e.Direction)
	case EventByte:
		a.Class = "data-" + e.Direction.String()
		if e.Direction == Read {
			a.Label = fmt.Sprintf("Read 0x%02x", e.Value)
		} else {
			a.Label = fmt.Sprintf("Write 0x%02x", e.Value)
		}
	}
	return a
}

// stateType represents the state of the decoding process.
type stateType int

const (
	idle stateType = iota
	waitAck
	dataWrite
	dataRead
)

// Decoder contains the state machine for one expander address.
type Decoder struct {
	address byte
	state   stateType
	// next is the state entered after the acknowledge.
	next stateType
}

// New returns a decoder for the expander at the given unshifted bus address.
func New(address byte) *Decoder {
	return &Decoder{address: address}
}

// Address returns the configured device address.
func (d *Decoder) Address() byte {
	return d.address
}

// Reset returns to idle.
func (d *Decoder) Reset() {
	d.state, d.next = idle, idle
}

// Feed processes the next bus transaction.
// Transactions of other devices are silently dropped.
func (d *Decoder) Feed(t i2c.Transaction) []Event {
	switch d.state {
	case idle:
		if t.Value != d.address {
			return nil
		}
		switch t.Kind {
		case i2c.AddressWrite:
			d.state, d.next = waitAck, dataWrite
			return []Event{{Kind: EventAddress, Value: t.Value, Direction: Write, Span: t.Span}}
		case i2c.AddressRead:
			d.state, d.next = waitAck, dataRead
			return []Event{{Kind: EventAddress, Value: t.Value, Direction: Read, Span: t.Span}}
		}

	case waitAck:
		switch t.Kind {
		case i2c.Acknowledge:
			d.state = d.next
		case i2c.NotAcknowledge:
			debug.DebugLog.Printf("pcf8574: device 0x%02x didn't acknowledge at %s", d.address, t.Span)
			d.Reset()
		case i2c.AddressWrite, i2c.AddressRead:
			return d.desync(t)
		}

	case dataWrite:
		if t.Kind == i2c.DataWrite {
			d.Reset()
			return []Event{{Kind: EventByte, Value: t.Value, Direction: Write, Span: t.Span}}
		}
		return d.desync(t)

	case dataRead:
		if t.Kind == i2c.DataRead {
			d.Reset()
			return []Event{{Kind: EventByte, Value: t.Value, Direction: Read, Span: t.Span}}
		}
		return d.desync(t)
	}

	return nil
}

// desync handles an unexpected transaction while a data byte is awaited.
// A new address phase restarts the decoding, a NACK ends the transfer,
// anything else is ignored.
func (d *Decoder) desync(t i2c.Transaction) []Event {
	switch t.Kind {
	case i2c.AddressWrite, i2c.AddressRead:
		debug.DebugLog.Printf("pcf8574: %s at %s while awaiting data, restarting", t, t.Span)
		d.Reset()
		return d.Feed(t)
	case i2c.NotAcknowledge:
		d.Reset()
	default:
		debug.DebugLog.Printf("pcf8574: unexpected %s at %s, ignored", t, t.Span)
	}
	return nil
}
