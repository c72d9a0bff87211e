package pcf8574_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/pcf8574"
	"lcdsniff/pkg/port"
)

// write returns the transactions of a single byte write transfer.
func write(address, value byte) []i2c.Transaction {
	return []i2c.Transaction{
		{Kind: i2c.AddressWrite, Value: address},
		{Kind: i2c.Acknowledge},
		{Kind: i2c.DataWrite, Value: value},
		{Kind: i2c.Acknowledge},
	}
}

func feed(d *pcf8574.Decoder, txns []i2c.Transaction) []pcf8574.Event {
	var out []pcf8574.Event
	for _, t := range txns {
		out = append(out, d.Feed(t)...)
	}
	return out
}

// portBytes filters the port byte events.
func portBytes(events []pcf8574.Event) []pcf8574.Event {
	var out []pcf8574.Event
	for _, e := range events {
		if e.Kind == pcf8574.EventByte {
			out = append(out, e)
		}
	}
	return out
}

var _ = Describe("Decoder", func() {
	var d *pcf8574.Decoder

	BeforeEach(func() {
		d = pcf8574.New(pcf8574.DefaultAddress)
	})

	It("emits a port byte for a write to the configured address", func() {
		events := feed(d, write(0x27, 0x4d))

		Expect(events).To(HaveLen(2))
		Expect(events[0].Kind).To(Equal(pcf8574.EventAddress))
		Expect(events[1]).To(Equal(pcf8574.Event{Kind: pcf8574.EventByte, Value: 0x4d, Direction: pcf8574.Write}))
	})

	It("drops transfers to other addresses", func() {
		Expect(feed(d, write(0x20, 0x4d))).To(BeEmpty())
	})

	It("emits one port byte per transfer in order", func() {
		var txns []i2c.Transaction
		for _, v := range []byte{0x01, 0x02, 0x03} {
			txns = append(txns, write(0x27, v)...)
			txns = append(txns, write(0x20, 0xff)...)
		}

		bytes := portBytes(feed(d, txns))

		Expect(bytes).To(HaveLen(3))
		for i, e := range bytes {
			Expect(e.Value).To(Equal(byte(i + 1)))
		}
	})

	It("emits a port byte for a read", func() {
		events := portBytes(feed(d, []i2c.Transaction{
			{Kind: i2c.AddressRead, Value: 0x27},
			{Kind: i2c.Acknowledge},
			{Kind: i2c.DataRead, Value: 0xf0},
			{Kind: i2c.NotAcknowledge},
		}))

		Expect(events).To(HaveLen(1))
		Expect(events[0].Direction).To(Equal(pcf8574.Read))
		Expect(events[0].Value).To(Equal(byte(0xf0)))
	})

	It("decodes the first data byte of a transfer only", func() {
		events := portBytes(feed(d, []i2c.Transaction{
			{Kind: i2c.AddressWrite, Value: 0x27},
			{Kind: i2c.Acknowledge},
			{Kind: i2c.DataWrite, Value: 0x01},
			{Kind: i2c.Acknowledge},
			{Kind: i2c.DataWrite, Value: 0x02},
			{Kind: i2c.Acknowledge},
		}))

		Expect(events).To(HaveLen(1))
		Expect(events[0].Value).To(Equal(byte(0x01)))
	})

	It("ignores data without an acknowledged address", func() {
		events := feed(d, []i2c.Transaction{
			{Kind: i2c.DataWrite, Value: 0x27},
			{Kind: i2c.AddressWrite, Value: 0x27},
			{Kind: i2c.NotAcknowledge, Value: 1},
			{Kind: i2c.DataWrite, Value: 0x01},
		})

		Expect(portBytes(events)).To(BeEmpty())
	})

	It("restarts on a new address phase while awaiting data", func() {
		events := portBytes(feed(d, []i2c.Transaction{
			{Kind: i2c.AddressWrite, Value: 0x27},
			{Kind: i2c.Acknowledge},
			{Kind: i2c.AddressRead, Value: 0x27},
			{Kind: i2c.Acknowledge},
			{Kind: i2c.DataRead, Value: 0x42},
		}))

		Expect(events).To(HaveLen(1))
		Expect(events[0].Direction).To(Equal(pcf8574.Read))
	})

	It("keeps the position of the data byte", func() {
		txns := write(0x27, 0x55)
		txns[2].Span = port.Span{Start: 100, End: 180}

		events := portBytes(feed(d, txns))

		Expect(events[0].Span).To(Equal(port.Span{Start: 100, End: 180}))
	})

	It("annotates port bytes", func() {
		Expect(pcf8574.Event{Kind: pcf8574.EventByte, Value: 0x4d}.Annotation().Label).To(Equal("Write 0x4d"))
		Expect(pcf8574.Event{Kind: pcf8574.EventByte, Value: 0x4d, Direction: pcf8574.Read}.Annotation().Label).To(Equal("Read 0x4d"))
	})
})

var _ = Describe("Event.Logic", func() {
	It("maps pin Pi to line i", func() {
		l := pcf8574.Event{Value: 0x45, Span: port.Span{Start: 1, End: 2}}.Logic()

		Expect(l.Span).To(Equal(port.Span{Start: 1, End: 2}))
		Expect(l.Lines).To(Equal([]port.StateType{
			port.High, port.Low, port.High, port.Low, port.Low, port.Low, port.High, port.Low,
		}))
		Expect(l.Bits(7, 6, 5, 4)).To(Equal(byte(0x4)))
	})
})

var _ = Describe("Backpack", func() {
	It("strobes both nibbles of a data byte", func() {
		bp := pcf8574.Backpack{Backlight: true}

		Expect(bp.Data('A')).To(Equal([]byte{0x49, 0x4d, 0x49, 0x19, 0x1d, 0x19}))
	})

	It("keeps RS low for commands", func() {
		bp := pcf8574.Backpack{}

		Expect(bp.Command(0x01)).To(Equal([]byte{0x00, 0x04, 0x00, 0x10, 0x14, 0x10}))
	})
})
