// Package pipeline wires the decoders: SCL/SDA samples are framed and
// resolved to bus transactions, the transactions of the port expander become
// line snapshots and the snapshots are decoded as display commands and text.
package pipeline

import (
	"errors"
	"fmt"

	"lcdsniff/pkg/hd44780"
	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/pcf8574"
	"lcdsniff/pkg/port"
)

// Config is the configuration of a pipeline.
type Config struct {
	// Address is the unshifted bus address of the port expander.
	Address byte
	// Mode is the bus mode of the display controller.
	Mode hd44780.BusMode
}

// ErrExpanderMode is returned for a bus mode a port expander can't drive.
var ErrExpanderMode = errors.New("port expander drives the lcd in 4 bit mode only")

// CheckExpander checks that the configuration can decode the display behind
// the port expander. The expander has 8 pins, so the controller runs in 4 bit
// mode; 8 bit mode is decoded from line snapshots fed with FeedLogic.
func (c Config) CheckExpander() error {
	if c.Mode != hd44780.Bus4Bit {
		return fmt.Errorf("%w: mode %s", ErrExpanderMode, c.Mode)
	}
	return nil
}

// DefaultConfig returns the configuration of a common LCD backpack.
func DefaultConfig() Config {
	return Config{Address: pcf8574.DefaultAddress, Mode: hd44780.Bus4Bit}
}

// Sink receives the three output channels of a pipeline.
type Sink interface {
	// Annotate receives the annotations of all layers.
	Annotate(port.Annotation)
	// WriteByte receives each decoded command or data byte.
	WriteByte(byte) error
	// Record receives the structured events.
	Record(Record)
}

// Stats counts the events of each layer.
type Stats struct {
	Samples      uint64 `json:"samples"`
	Frames       uint64 `json:"frames"`
	Transactions uint64 `json:"transactions"`
	PortBytes    uint64 `json:"portBytes"`
	Commands     uint64 `json:"commands"`
	Data         uint64 `json:"data"`
	Warnings     uint64 `json:"warnings"`
}

// Pipeline is one decoding session. It owns the state of all layers and
// must not be fed from more than one goroutine.
type Pipeline struct {
	framer   *i2c.Framer
	bus      *i2c.Decoder
	expander *pcf8574.Decoder
	display  *hd44780.Decoder
	sink     Sink
	stats    Stats
	// err is the first error of the binary output.
	err error
}

// New returns a pipeline writing to sink.
func New(cfg Config, sink Sink) *Pipeline {
	return &Pipeline{
		framer:   i2c.NewFramer(),
		bus:      i2c.New(),
		expander: pcf8574.New(cfg.Address),
		display:  hd44780.New(cfg.Mode),
		sink:     sink,
	}
}

// Reset discards the partial state of all layers.
func (p *Pipeline) Reset() {
	p.framer.Reset()
	p.bus.Reset()
	p.expander.Reset()
	p.display.Reset()
}

// Err returns the first error returned by the sink's WriteByte.
func (p *Pipeline) Err() error {
	return p.err
}

func (p *Pipeline) writeByte(b byte) {
	if err := p.sink.WriteByte(b); err != nil && p.err == nil {
		p.err = err
	}
}

// Stats returns the event counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// FeedSample feeds a sample of the bus lines.
func (p *Pipeline) FeedSample(s i2c.Sample) {
	p.stats.Samples++
	for _, f := range p.framer.Feed(s) {
		p.FeedFrame(f)
	}
}

// FeedFrame feeds a byte level framing event.
func (p *Pipeline) FeedFrame(f i2c.Frame) {
	p.stats.Frames++
	for _, t := range p.bus.Feed(f) {
		p.FeedTransaction(t)
	}
}

// FeedTransaction feeds a bus transaction.
func (p *Pipeline) FeedTransaction(t i2c.Transaction) {
	p.stats.Transactions++
	p.sink.Annotate(t.Annotation())

	for _, e := range p.expander.Feed(t) {
		p.sink.Annotate(e.Annotation())

		switch e.Kind {
		case pcf8574.EventAddress:
			p.sink.Record(Record{Kind: RecordAddress, Span: e.Span, Address: e.Value, Direction: e.Direction.String()})
		case pcf8574.EventByte:
			p.stats.PortBytes++
			if e.Direction == pcf8574.Write {
				p.FeedLogic(e.Logic())
			}
		}
	}
}

// FeedLogic feeds a snapshot of the display controller lines.
func (p *Pipeline) FeedLogic(l port.Logic) {
	for _, e := range p.display.Feed(l) {
		p.sink.Annotate(e.Annotation())

		switch e.Kind {
		case hd44780.EventCommand:
			p.stats.Commands++
			cmd := e.Command
			p.writeByte(e.Value)
			p.sink.Record(Record{Kind: RecordCommand, Span: e.Span, Value: e.Value, Command: &cmd})
		case hd44780.EventData:
			p.stats.Data++
			sym := e.Symbol
			p.writeByte(e.Value)
			p.sink.Record(Record{Kind: RecordData, Span: e.Span, Value: e.Value, Symbol: &sym})
		case hd44780.EventWarning:
			p.stats.Warnings++
			p.sink.Record(Record{Kind: RecordWarning, Span: e.Span, Message: e.Message})
		}
	}
}
