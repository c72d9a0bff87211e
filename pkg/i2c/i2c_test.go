package i2c_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/port"
)

// frame feeds all samples to a new framer.
func frame(samples []i2c.Sample) []i2c.Frame {
	f := i2c.NewFramer()
	var out []i2c.Frame
	for _, s := range samples {
		out = append(out, f.Feed(s)...)
	}
	return out
}

// decode feeds all frames to a new decoder.
func decode(frames []i2c.Frame) []i2c.Transaction {
	d := i2c.New()
	var out []i2c.Transaction
	for _, f := range frames {
		out = append(out, d.Feed(f)...)
	}
	return out
}

func frameKinds(frames []i2c.Frame) []i2c.FrameKind {
	kinds := make([]i2c.FrameKind, len(frames))
	for i, f := range frames {
		kinds[i] = f.Kind
	}
	return kinds
}

func kinds(txns []i2c.Transaction) []i2c.Kind {
	out := make([]i2c.Kind, len(txns))
	for i, t := range txns {
		out[i] = t.Kind
	}
	return out
}

var _ = Describe("Framer", func() {
	It("frames a write transfer", func() {
		g := i2c.NewGenerator()
		g.Write(0x27, 0x41)

		frames := frame(g.Samples())

		Expect(frameKinds(frames)).To(Equal([]i2c.FrameKind{
			i2c.FrameStart, i2c.FrameAddress, i2c.FrameAck, i2c.FrameData, i2c.FrameAck, i2c.FrameStop,
		}))
		Expect(frames[1].Value).To(Equal(byte(0x27)))
		Expect(frames[1].Read).To(BeFalse())
		Expect(frames[3].Value).To(Equal(byte(0x41)))
	})

	It("spans a byte from the first rising to the last falling clock edge", func() {
		g := i2c.NewGenerator()
		g.Write(0x27, 0x41)

		frames := frame(g.Samples())

		Expect(frames[0].Span).To(Equal(port.Span{Start: 1, End: 1}))
		Expect(frames[1].Span).To(Equal(port.Span{Start: 4, End: 26}))
		Expect(frames[2].Span).To(Equal(port.Span{Start: 28, End: 29}))
		Expect(frames[3].Span).To(Equal(port.Span{Start: 31, End: 53}))
	})

	It("frames a read transfer with a final NACK", func() {
		g := i2c.NewGenerator()
		g.Read(0x27, 0xab)

		frames := frame(g.Samples())

		Expect(frameKinds(frames)).To(Equal([]i2c.FrameKind{
			i2c.FrameStart, i2c.FrameAddress, i2c.FrameAck, i2c.FrameData, i2c.FrameNack, i2c.FrameStop,
		}))
		Expect(frames[1].Read).To(BeTrue())
		Expect(frames[3].Value).To(Equal(byte(0xab)))
	})

	It("treats the first byte after a repeated start as address", func() {
		g := i2c.NewGenerator()
		g.Start()
		g.Byte(0x27<<1, true)
		g.Byte(0x10, true)
		g.Start()
		g.Byte(0x27<<1|1, true)
		g.Byte(0x55, false)
		g.Stop()

		frames := frame(g.Samples())

		Expect(frameKinds(frames)).To(Equal([]i2c.FrameKind{
			i2c.FrameStart, i2c.FrameAddress, i2c.FrameAck, i2c.FrameData, i2c.FrameAck,
			i2c.FrameStart, i2c.FrameAddress, i2c.FrameAck, i2c.FrameData, i2c.FrameNack, i2c.FrameStop,
		}))
		Expect(frames[6].Read).To(BeTrue())
	})

	It("waits for a start condition when started mid-stream", func() {
		g := i2c.NewGenerator()
		g.Write(0x27, 0x01)
		g.Write(0x27, 0x02)
		samples := g.Samples()

		frames := frame(samples[20:])

		Expect(frames[0].Kind).To(Equal(i2c.FrameStop))
		Expect(frameKinds(frames[1:])).To(Equal([]i2c.FrameKind{
			i2c.FrameStart, i2c.FrameAddress, i2c.FrameAck, i2c.FrameData, i2c.FrameAck, i2c.FrameStop,
		}))
		Expect(frames[4].Value).To(Equal(byte(0x02)))
	})

	It("keeps the spans of consecutive frames apart", func() {
		g := i2c.NewGenerator()
		g.Write(0x27, 0x12, 0x34, 0x56)

		frames := frame(g.Samples())

		for i := 1; i < len(frames); i++ {
			Expect(frames[i].Span.Start).To(BeNumerically(">=", frames[i-1].Span.End))
			Expect(frames[i].Span.Start).To(BeNumerically("<=", frames[i].Span.End))
		}
	})
})

var _ = Describe("Decoder", func() {
	It("emits one transaction per byte and acknowledge", func() {
		g := i2c.NewGenerator()
		g.Write(0x27, 0x41, 0x42)

		txns := decode(frame(g.Samples()))

		Expect(kinds(txns)).To(Equal([]i2c.Kind{
			i2c.AddressWrite, i2c.Acknowledge, i2c.DataWrite, i2c.Acknowledge, i2c.DataWrite, i2c.Acknowledge,
		}))
		Expect(txns[0].Value).To(Equal(byte(0x27)))
		Expect(txns[2].Value).To(Equal(byte(0x41)))
		Expect(txns[4].Value).To(Equal(byte(0x42)))
	})

	It("decodes reads", func() {
		g := i2c.NewGenerator()
		g.Read(0x27, 0x10, 0x20)

		txns := decode(frame(g.Samples()))

		Expect(kinds(txns)).To(Equal([]i2c.Kind{
			i2c.AddressRead, i2c.Acknowledge, i2c.DataRead, i2c.Acknowledge, i2c.DataRead, i2c.NotAcknowledge,
		}))
	})

	It("preserves the positions of the frames", func() {
		frames := []i2c.Frame{
			{Kind: i2c.FrameAddress, Value: 0x27, Span: port.Span{Start: 10, End: 20}},
			{Kind: i2c.FrameAck, Span: port.Span{Start: 21, End: 22}},
			{Kind: i2c.FrameData, Value: 0x99, Span: port.Span{Start: 23, End: 30}},
		}

		txns := decode(frames)

		Expect(txns).To(HaveLen(3))
		for i := range txns {
			Expect(txns[i].Span).To(Equal(frames[i].Span))
		}
	})

	It("ignores data without an address phase", func() {
		txns := decode([]i2c.Frame{
			{Kind: i2c.FrameData, Value: 0x41},
			{Kind: i2c.FrameAck},
			{Kind: i2c.FrameAddress, Value: 0x27},
			{Kind: i2c.FrameAck},
			{Kind: i2c.FrameData, Value: 0x42},
		})

		Expect(kinds(txns)).To(Equal([]i2c.Kind{i2c.AddressWrite, i2c.Acknowledge, i2c.DataWrite}))
		Expect(txns[2].Value).To(Equal(byte(0x42)))
	})

	It("ignores data while an acknowledge is awaited", func() {
		txns := decode([]i2c.Frame{
			{Kind: i2c.FrameAddress, Value: 0x27},
			{Kind: i2c.FrameData, Value: 0x41},
			{Kind: i2c.FrameAck},
		})

		Expect(kinds(txns)).To(Equal([]i2c.Kind{i2c.AddressWrite, i2c.Acknowledge}))
	})

	It("returns to idle on a stop condition", func() {
		txns := decode([]i2c.Frame{
			{Kind: i2c.FrameAddress, Value: 0x27},
			{Kind: i2c.FrameAck},
			{Kind: i2c.FrameStop},
			{Kind: i2c.FrameData, Value: 0x41},
		})

		Expect(kinds(txns)).To(Equal([]i2c.Kind{i2c.AddressWrite, i2c.Acknowledge}))
	})

	It("returns to idle after a NACK", func() {
		txns := decode([]i2c.Frame{
			{Kind: i2c.FrameAddress, Value: 0x27},
			{Kind: i2c.FrameNack},
			{Kind: i2c.FrameData, Value: 0x41},
		})

		Expect(kinds(txns)).To(Equal([]i2c.Kind{i2c.AddressWrite, i2c.NotAcknowledge}))
	})

	It("restarts on an address byte in any state", func() {
		txns := decode([]i2c.Frame{
			{Kind: i2c.FrameAddress, Value: 0x27},
			{Kind: i2c.FrameAddress, Value: 0x20, Read: true},
			{Kind: i2c.FrameAck},
			{Kind: i2c.FrameData, Value: 0x7f},
		})

		Expect(kinds(txns)).To(Equal([]i2c.Kind{i2c.AddressWrite, i2c.AddressRead, i2c.Acknowledge, i2c.DataRead}))
	})

	It("annotates transactions", func() {
		a := i2c.Transaction{Kind: i2c.AddressWrite, Value: 0x27}.Annotation()

		Expect(a.Layer).To(Equal("i2c"))
		Expect(a.Class).To(Equal("address-write"))
		Expect(a.Label).To(Equal("Address write: 27"))
	})
})
