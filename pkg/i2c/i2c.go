// Package i2c is the decoder of the I2C bus: it turns samples of SCL and SDA
// into framing events (Framer) and framing events into bus transactions (Decoder).
package i2c

import (
	"fmt"

	"github.com/womat/debug"
	"lcdsniff/pkg/port"
)

// Kind is the kind of a bus transaction.
type Kind int

const (
	AddressWrite Kind = iota
	AddressRead
	DataWrite
	DataRead
	Acknowledge
	NotAcknowledge
)

var kindNames = [...]string{
	AddressWrite:   "ADDRESS WRITE",
	AddressRead:    "ADDRESS READ",
	DataWrite:      "DATA WRITE",
	DataRead:       "DATA READ",
	Acknowledge:    "ACK",
	NotAcknowledge: "NACK",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Transaction is one resolved byte level event of the bus.
type Transaction struct {
	Kind  Kind
	Value byte
	Span  port.Span
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s 0x%02x", t.Kind, t.Value)
}

// stateType represents the state of the decoding process.
type stateType int

const (
	// idle waits for an address byte.
	idle stateType = iota
	// waitAck waits for the acknowledge of the last byte.
	waitAck
	// dataWrite accepts bytes written by the controller.
	dataWrite
	// dataRead accepts bytes read by the controller.
	dataRead
)

// Decoder resolves framing events to bus transactions.
type Decoder struct {
	state stateType
	// next is the state entered after the acknowledge.
	next stateType
}

// New returns a decoder waiting for an address byte.
func New() *Decoder {
	return &Decoder{state: idle, next: idle}
}

// Reset discards an address awaiting acknowledge or an open transfer.
func (d *Decoder) Reset() {
	d.state, d.next = idle, idle
}

// Feed processes the next framing event.
// Events which are invalid for the current state are ignored, the decoder
// resynchronizes on the next address byte.
func (d *Decoder) Feed(f Frame) []Transaction {
	switch f.Kind {
	case FrameStart, FrameStop:
		d.Reset()
		return nil

	case FrameAddress:
		// an address byte always starts a new transfer, whatever the state is
		t := Transaction{Kind: AddressWrite, Value: f.Value, Span: f.Span}
		d.next = dataWrite
		if f.Read {
			t.Kind = AddressRead
			d.next = dataRead
		}
		d.state = waitAck
		return []Transaction{t}

	case FrameAck, FrameNack:
		if d.state != waitAck {
			debug.DebugLog.Printf("i2c: %s at %s without a pending byte, ignored", f.Kind, f.Span)
			return nil
		}
		if f.Kind == FrameNack {
			d.Reset()
			return []Transaction{{Kind: NotAcknowledge, Value: 1, Span: f.Span}}
		}
		d.state = d.next
		return []Transaction{{Kind: Acknowledge, Span: f.Span}}

	case FrameData:
		switch d.state {
		case dataWrite:
			d.state, d.next = waitAck, dataWrite
			return []Transaction{{Kind: DataWrite, Value: f.Value, Span: f.Span}}
		case dataRead:
			d.state, d.next = waitAck, dataRead
			return []Transaction{{Kind: DataRead, Value: f.Value, Span: f.Span}}
		case idle, waitAck:
			debug.DebugLog.Printf("i2c: unexpected data byte 0x%02x at %s, ignored", f.Value, f.Span)
		}
		return nil
	}

	return nil
}

// Annotation renders the transaction for visualization tools.
func (t Transaction) Annotation() port.Annotation {
	a := port.Annotation{Span: t.Span, Layer: "i2c"}
	switch t.Kind {
	case AddressWrite:
		a.Class, a.Label = "address-write", fmt.Sprintf("Address write: %02X", t.Value)
	case AddressRead:
		a.Class, a.Label = "address-read", fmt.Sprintf("Address read: %02X", t.Value)
	case DataWrite:
		a.Class, a.Label = "data-write", fmt.Sprintf("Data write: %02X", t.Value)
	case DataRead:
		a.Class, a.Label = "data-read", fmt.Sprintf("Data read: %02X", t.Value)
	case Acknowledge:
		a.Class, a.Label = "ack", "ACK"
	case NotAcknowledge:
		a.Class, a.Label = "nack", "NACK"
	}
	return a
}
