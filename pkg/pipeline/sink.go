package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"lcdsniff/pkg/hd44780"
	"lcdsniff/pkg/port"
)

// RecordKind is the kind of a structured record.
type RecordKind int

const (
	RecordAddress RecordKind = iota
	RecordCommand
	RecordData
	RecordWarning
)

var recordNames = [...]string{
	RecordAddress: "address",
	RecordCommand: "command",
	RecordData:    "data",
	RecordWarning: "warning",
}

func (k RecordKind) String() string {
	if k < 0 || int(k) >= len(recordNames) {
		return "unknown"
	}
	return recordNames[k]
}

// MarshalText renders the kind in records.
func (k RecordKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Record is a typed event for programmatic consumption.
type Record struct {
	Kind      RecordKind       `json:"kind"`
	Span      port.Span        `json:"span"`
	Address   byte             `json:"address,omitempty"`
	Direction string           `json:"direction,omitempty"`
	Value     byte             `json:"value,omitempty"`
	Command   *hd44780.Command `json:"command,omitempty"`
	Symbol    *hd44780.Symbol  `json:"symbol,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Byte returns the decoded byte of a command or data record.
func (r Record) Byte() hd44780.DecodedByte {
	mode := hd44780.ModeCommand
	if r.Kind == RecordData {
		mode = hd44780.ModeData
	}
	return hd44780.DecodedByte{Value: r.Value, Mode: mode, Span: r.Span}
}

func (r Record) String() string {
	switch r.Kind {
	case RecordAddress:
		return fmt.Sprintf("%s address 0x%02x %s", r.Span, r.Address, r.Direction)
	case RecordCommand:
		return fmt.Sprintf("%s command %s", r.Span, r.Command)
	case RecordData:
		return fmt.Sprintf("%s data %s", r.Span, r.Symbol)
	default:
		return fmt.Sprintf("%s %s %s", r.Span, r.Kind, r.Message)
	}
}

// Collector keeps all outputs in memory.
type Collector struct {
	Annotations []port.Annotation
	Binary      []byte
	Records     []Record
}

// Annotate appends the annotation.
func (c *Collector) Annotate(a port.Annotation) {
	c.Annotations = append(c.Annotations, a)
}

// WriteByte appends the byte to the binary output.
func (c *Collector) WriteByte(b byte) error {
	c.Binary = append(c.Binary, b)
	return nil
}

// Record appends the record.
func (c *Collector) Record(r Record) {
	c.Records = append(c.Records, r)
}

// Text returns the text written to the display.
func (c *Collector) Text() string {
	var sb strings.Builder
	for _, r := range c.Records {
		if r.Kind == RecordData {
			sb.WriteString(r.Symbol.Text())
		}
	}
	return sb.String()
}

// WriterSink writes the output channels to writers, nil writers are skipped.
// Annotations are written one per line, records as JSON lines and bytes unchanged.
type WriterSink struct {
	annotations io.Writer
	binary      io.Writer
	records     *json.Encoder
	// text receives the data symbols as plain text.
	text io.Writer
	err  error
}

// NewWriterSink returns a sink writing to the given writers.
func NewWriterSink(text, annotations, binary, records io.Writer) *WriterSink {
	s := &WriterSink{text: text, annotations: annotations, binary: binary}
	if records != nil {
		s.records = json.NewEncoder(records)
	}
	return s
}

// Err returns the first write error.
func (s *WriterSink) Err() error {
	return s.err
}

func (s *WriterSink) setErr(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Annotate writes the annotation.
func (s *WriterSink) Annotate(a port.Annotation) {
	if s.annotations == nil {
		return
	}
	_, err := fmt.Fprintln(s.annotations, a)
	s.setErr(err)
}

// WriteByte writes the byte to the binary writer.
func (s *WriterSink) WriteByte(b byte) error {
	if s.binary == nil {
		return nil
	}
	_, err := s.binary.Write([]byte{b})
	s.setErr(err)
	return err
}

// Record writes the record and the text of data records.
func (s *WriterSink) Record(r Record) {
	if s.text != nil && r.Kind == RecordData {
		_, err := io.WriteString(s.text, r.Symbol.Text())
		s.setErr(err)
	}
	if s.records != nil {
		s.setErr(s.records.Encode(r))
	}
}

// Tee forwards the outputs to several sinks.
type Tee []Sink

func (t Tee) Annotate(a port.Annotation) {
	for _, s := range t {
		s.Annotate(a)
	}
}

func (t Tee) WriteByte(b byte) error {
	var err error
	for _, s := range t {
		if e := s.WriteByte(b); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (t Tee) Record(r Record) {
	for _, s := range t {
		s.Record(r)
	}
}
