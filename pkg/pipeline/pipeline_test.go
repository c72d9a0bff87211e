package pipeline_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lcdsniff/pkg/hd44780"
	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/pcf8574"
	"lcdsniff/pkg/pipeline"
	"lcdsniff/pkg/port"
)

// capture returns the samples of a backpack driver clearing the display and
// writing text, one port byte per write transfer.
func capture(address byte, text string) []i2c.Sample {
	bp := pcf8574.Backpack{Backlight: true}
	writes := bp.Command(byte(hd44780.ClearDisplay))
	writes = append(writes, bp.Text(text)...)

	g := i2c.NewGenerator()
	for _, b := range writes {
		g.Write(address, b)
	}
	return g.Samples()
}

func run(cfg pipeline.Config, samples []i2c.Sample) *pipeline.Collector {
	c := &pipeline.Collector{}
	p := pipeline.New(cfg, c)
	for _, s := range samples {
		p.FeedSample(s)
	}
	return c
}

func recordKinds(records []pipeline.Record) []pipeline.RecordKind {
	out := make([]pipeline.RecordKind, len(records))
	for i, r := range records {
		out[i] = r.Kind
	}
	return out
}

var _ = Describe("Pipeline", func() {
	It("decodes the text written through the port expander", func() {
		c := run(pipeline.DefaultConfig(), capture(0x27, "Hi"))

		Expect(c.Text()).To(Equal("Hi"))
		Expect(c.Binary).To(Equal([]byte{0x01, 'H', 'i'}))
	})

	It("records the command before the data", func() {
		c := run(pipeline.DefaultConfig(), capture(0x27, "Hi"))

		var decoded []pipeline.Record
		for _, r := range c.Records {
			if r.Kind == pipeline.RecordCommand || r.Kind == pipeline.RecordData {
				decoded = append(decoded, r)
			}
		}

		Expect(recordKinds(decoded)).To(Equal([]pipeline.RecordKind{
			pipeline.RecordCommand, pipeline.RecordData, pipeline.RecordData,
		}))
		Expect(decoded[0].Command.Opcode).To(Equal(hd44780.ClearDisplay))
		Expect(decoded[0].Byte().Mode).To(Equal(hd44780.ModeCommand))
		Expect(decoded[1].Byte().Mode).To(Equal(hd44780.ModeData))
		Expect(decoded[1].Span.Start).To(BeNumerically(">", decoded[0].Span.End))
		Expect(decoded[2].Span.Start).To(BeNumerically(">", decoded[1].Span.End))
	})

	It("records an address event per transfer", func() {
		c := run(pipeline.DefaultConfig(), capture(0x27, "A"))

		n := 0
		for _, r := range c.Records {
			if r.Kind == pipeline.RecordAddress {
				Expect(r.Address).To(Equal(byte(0x27)))
				Expect(r.Direction).To(Equal("write"))
				n++
			}
		}
		Expect(n).To(Equal(12))
	})

	It("annotates every layer", func() {
		c := run(pipeline.DefaultConfig(), capture(0x27, "A"))

		layers := map[string]bool{}
		for _, a := range c.Annotations {
			layers[a.Layer] = true
		}

		Expect(layers).To(HaveKey("i2c"))
		Expect(layers).To(HaveKey("pcf8574"))
		Expect(layers).To(HaveKey("hd44780"))
	})

	It("ignores other devices on the bus", func() {
		c := run(pipeline.DefaultConfig(), capture(0x20, "Hi"))

		Expect(c.Records).To(BeEmpty())
		Expect(c.Binary).To(BeEmpty())
		Expect(c.Annotations).NotTo(BeEmpty())
	})

	It("decodes the configured address", func() {
		cfg := pipeline.DefaultConfig()
		cfg.Address = 0x20

		Expect(run(cfg, capture(0x20, "Hi")).Text()).To(Equal("Hi"))
	})

	It("resynchronizes when started mid-stream", func() {
		samples := capture(0x27, "Hi")

		c := run(pipeline.DefaultConfig(), samples[20:])

		Expect(c.Text()).To(Equal("Hi"))
	})

	It("produces identical outputs for identical input", func() {
		samples := capture(0x27, "Hello")

		Expect(run(pipeline.DefaultConfig(), samples)).To(Equal(run(pipeline.DefaultConfig(), samples)))
	})

	It("counts the events of each layer", func() {
		samples := capture(0x27, "Hi")
		p := pipeline.New(pipeline.DefaultConfig(), &pipeline.Collector{})
		for _, s := range samples {
			p.FeedSample(s)
		}

		stats := p.Stats()
		Expect(stats.Samples).To(Equal(uint64(len(samples))))
		Expect(stats.PortBytes).To(Equal(uint64(18)))
		Expect(stats.Commands).To(Equal(uint64(1)))
		Expect(stats.Data).To(Equal(uint64(2)))
		Expect(stats.Warnings).To(BeZero())
	})

	It("decodes line snapshots of an 8 bit bus", func() {
		c := &pipeline.Collector{}
		p := pipeline.New(pipeline.Config{Mode: hd44780.Bus8Bit}, c)

		snapshot := func(i uint64, en bool, b byte) port.Logic {
			lines := make([]port.StateType, 11)
			lines[hd44780.LineRS] = port.High
			lines[hd44780.LineEnable] = port.Level(en)
			for n := 0; n < 8; n++ {
				lines[3+n] = port.Level(b&(1<<n) != 0)
			}
			return port.Logic{Span: port.Span{Start: i, End: i}, Lines: lines}
		}
		p.FeedLogic(snapshot(0, true, 'O'))
		p.FeedLogic(snapshot(1, false, 'O'))
		p.FeedLogic(snapshot(2, true, 'K'))
		p.FeedLogic(snapshot(3, false, 'K'))

		Expect(c.Text()).To(Equal("OK"))
	})

	It("keeps the first error of the binary output", func() {
		errFull := errors.New("disk full")
		p := pipeline.New(pipeline.DefaultConfig(), &failingSink{err: errFull})

		for _, s := range capture(0x27, "Hi") {
			p.FeedSample(s)
		}

		Expect(p.Err()).To(MatchError(errFull))
	})

	It("reports no error for a working sink", func() {
		p := pipeline.New(pipeline.DefaultConfig(), &pipeline.Collector{})

		for _, s := range capture(0x27, "Hi") {
			p.FeedSample(s)
		}

		Expect(p.Err()).NotTo(HaveOccurred())
	})

	It("records malformed snapshots as warnings", func() {
		c := &pipeline.Collector{}
		p := pipeline.New(pipeline.DefaultConfig(), c)

		p.FeedLogic(port.Logic{Lines: make([]port.StateType, 3)})

		Expect(recordKinds(c.Records)).To(Equal([]pipeline.RecordKind{pipeline.RecordWarning}))
		Expect(p.Stats().Warnings).To(Equal(uint64(1)))
	})
})

// failingSink fails every byte write.
type failingSink struct {
	pipeline.Collector
	err error
}

func (s *failingSink) WriteByte(byte) error {
	return s.err
}

var _ = Describe("Config", func() {
	It("accepts the 4 bit mode behind the port expander", func() {
		Expect(pipeline.DefaultConfig().CheckExpander()).To(Succeed())
	})

	It("rejects the 8 bit mode behind the port expander", func() {
		cfg := pipeline.Config{Address: 0x27, Mode: hd44780.Bus8Bit}

		Expect(cfg.CheckExpander()).To(MatchError(pipeline.ErrExpanderMode))
	})

	It("decodes nothing from the port expander in 8 bit mode", func() {
		c := run(pipeline.Config{Address: 0x27, Mode: hd44780.Bus8Bit}, capture(0x27, "Hi"))

		Expect(c.Text()).To(BeEmpty())
	})
})

var _ = Describe("WriterSink", func() {
	It("writes each channel to its writer", func() {
		var text, annotations, binary, records bytes.Buffer
		sink := pipeline.NewWriterSink(&text, &annotations, &binary, &records)
		p := pipeline.New(pipeline.DefaultConfig(), sink)

		for _, s := range capture(0x27, "Hi") {
			p.FeedSample(s)
		}

		Expect(sink.Err()).NotTo(HaveOccurred())
		Expect(text.String()).To(Equal("Hi"))
		Expect(binary.Bytes()).To(Equal([]byte{0x01, 'H', 'i'}))
		Expect(annotations.String()).To(ContainSubstring("hd44780/data-write: 'H'"))
		Expect(records.String()).To(ContainSubstring(`"kind":"data"`))
		Expect(records.String()).To(ContainSubstring(`"name":"clear-display"`))
		Expect(strings.HasSuffix(records.String(), "}\n")).To(BeTrue())
	})

	It("writes the operand of a cursor move to address 0", func() {
		var records bytes.Buffer
		p := pipeline.New(pipeline.DefaultConfig(), pipeline.NewWriterSink(nil, nil, nil, &records))

		g := i2c.NewGenerator()
		for _, b := range (pcf8574.Backpack{Backlight: true}).Command(byte(hd44780.SetDDRAMAddress)) {
			g.Write(0x27, b)
		}
		for _, s := range g.Samples() {
			p.FeedSample(s)
		}

		Expect(records.String()).To(ContainSubstring(`"name":"set-ddram","operand":0}`))
	})

	It("skips channels without a writer", func() {
		var text bytes.Buffer
		sink := pipeline.NewWriterSink(&text, nil, nil, nil)
		p := pipeline.New(pipeline.DefaultConfig(), sink)

		for _, s := range capture(0x27, "ok") {
			p.FeedSample(s)
		}

		Expect(sink.Err()).NotTo(HaveOccurred())
		Expect(text.String()).To(Equal("ok"))
	})
})

var _ = Describe("Tee", func() {
	It("forwards to all sinks", func() {
		a, b := &pipeline.Collector{}, &pipeline.Collector{}
		p := pipeline.New(pipeline.DefaultConfig(), pipeline.Tee{a, b})

		for _, s := range capture(0x27, "x") {
			p.FeedSample(s)
		}

		Expect(a.Text()).To(Equal("x"))
		Expect(a).To(Equal(b))
	})
})
