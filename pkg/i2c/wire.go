package i2c

import (
	"lcdsniff/pkg/port"
)

// Sample is the level of both bus lines at a sample index.
type Sample struct {
	Index uint64
	SCL   bool
	SDA   bool
}

// FrameKind is the kind of byte level framing event seen on the wire.
type FrameKind int

const (
	// FrameStart is a start or repeated start condition (SDA falls while SCL is high).
	FrameStart FrameKind = iota
	// FrameStop is a stop condition (SDA rises while SCL is high).
	FrameStop
	// FrameAddress is the first byte after a start condition.
	FrameAddress
	// FrameData is any further byte of a transfer.
	FrameData
	// FrameAck is a low ninth bit.
	FrameAck
	// FrameNack is a high ninth bit.
	FrameNack
)

var frameNames = [...]string{
	FrameStart:   "START",
	FrameStop:    "STOP",
	FrameAddress: "ADDRESS",
	FrameData:    "DATA",
	FrameAck:     "ACK",
	FrameNack:    "NACK",
}

func (k FrameKind) String() string {
	if k < 0 || int(k) >= len(frameNames) {
		return "UNKNOWN"
	}
	return frameNames[k]
}

// Frame is a byte level framing event.
// For FrameAddress, Value is the 7-bit (unshifted) address and Read holds the R/W bit.
type Frame struct {
	Kind  FrameKind
	Value byte
	Read  bool
	Span  port.Span
}

// wireState is the state of the framer.
type wireState int

const (
	// waiting for a start condition
	wireIdle wireState = iota
	// receiving the address byte
	wireAddress
	// receiving data bytes
	wireData
)

// Framer turns samples of the SCL and SDA lines into framing events.
// Bits are sampled on the rising edge of SCL and accepted on the following
// falling edge, so a start or stop condition in between discards the bit.
type Framer struct {
	state wireState
	// scl and sda are the line levels of the previous sample.
	scl, sda port.StateType
	// bitCount is the number of bits received of the current byte, the 9th bit is the ack bit.
	bitCount int
	// rxRegister is the buffer of the currently received byte.
	rxRegister byte
	// byteStart is the sample index of the first bit of the current byte.
	byteStart uint64
	// pending is set while SCL is high and a bit was sampled.
	pending  bool
	bitStart uint64
	bitValue bool
}

// NewFramer returns a framer waiting for the first start condition.
func NewFramer() *Framer {
	f := &Framer{}
	f.Reset()
	return f
}

// Reset drops any partially received byte and waits for a start condition.
func (f *Framer) Reset() {
	f.state = wireIdle
	f.scl, f.sda = port.Invalid, port.Invalid
	f.bitCount = 0
	f.rxRegister = 0
	f.pending = false
}

// Feed processes the next sample and returns the completed framing events.
func (f *Framer) Feed(s Sample) []Frame {
	scl, sda := port.Level(s.SCL), port.Level(s.SDA)
	defer func() { f.scl, f.sda = scl, sda }()

	if f.scl == port.High && scl == port.High {
		switch port.Edge(f.sda, sda) {
		case port.FallingEdge:
			f.state = wireAddress
			f.bitCount, f.rxRegister, f.pending = 0, 0, false
			return []Frame{{Kind: FrameStart, Span: port.Span{Start: s.Index, End: s.Index}}}
		case port.RisingEdge:
			f.state = wireIdle
			f.pending = false
			return []Frame{{Kind: FrameStop, Span: port.Span{Start: s.Index, End: s.Index}}}
		}
		return nil
	}

	if f.state == wireIdle {
		return nil
	}

	switch port.Edge(f.scl, scl) {
	case port.RisingEdge:
		f.pending = true
		f.bitStart = s.Index
		f.bitValue = s.SDA
	case port.FallingEdge:
		if f.pending {
			f.pending = false
			return f.bit(f.bitValue, f.bitStart, s.Index)
		}
	}

	return nil
}

// bit shifts a received bit (MSB first) into the rxRegister.
// The 8th bit completes the byte, the 9th bit is the acknowledge.
func (f *Framer) bit(v bool, start, end uint64) []Frame {
	if f.bitCount == 8 {
		f.bitCount, f.rxRegister = 0, 0
		kind := FrameAck
		if v {
			kind = FrameNack
		}
		return []Frame{{Kind: kind, Value: boolToByte(v), Span: port.Span{Start: start, End: end}}}
	}

	if f.bitCount == 0 {
		f.byteStart = start
	}
	f.rxRegister = f.rxRegister<<1 | boolToByte(v)
	f.bitCount++
	if f.bitCount < 8 {
		return nil
	}

	span := port.Span{Start: f.byteStart, End: end}
	if f.state == wireAddress {
		f.state = wireData
		return []Frame{{Kind: FrameAddress, Value: f.rxRegister >> 1, Read: f.rxRegister&1 == 1, Span: span}}
	}
	return []Frame{{Kind: FrameData, Value: f.rxRegister, Span: span}}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
