package i2c

// Generator produces the line samples of bus transfers, one sample per line change.
// It is used to create synthetic captures.
type Generator struct {
	index    uint64
	scl, sda bool
	samples  []Sample
}

// NewGenerator returns a generator with an idle bus (both lines high).
func NewGenerator() *Generator {
	g := &Generator{scl: true, sda: true}
	g.emit()
	return g
}

// Samples returns the generated samples.
func (g *Generator) Samples() []Sample {
	return g.samples
}

func (g *Generator) emit() {
	g.samples = append(g.samples, Sample{Index: g.index, SCL: g.scl, SDA: g.sda})
	g.index++
}

func (g *Generator) set(scl, sda bool) {
	g.scl, g.sda = scl, sda
	g.emit()
}

// Start generates a start or repeated start condition.
func (g *Generator) Start() {
	if !g.scl {
		g.set(false, true)
		g.set(true, true)
	}
	g.set(true, false)
	g.set(false, false)
}

// Stop generates a stop condition.
func (g *Generator) Stop() {
	g.set(false, false)
	g.set(true, false)
	g.set(true, true)
}

func (g *Generator) bit(v bool) {
	g.set(false, v)
	g.set(true, v)
	g.set(false, v)
}

// Byte clocks out a byte MSB first followed by the acknowledge bit.
func (g *Generator) Byte(b byte, ack bool) {
	for i := 7; i >= 0; i-- {
		g.bit(b&(1<<i) != 0)
	}
	g.bit(!ack)
}

// Write generates a complete write transfer to the unshifted address.
func (g *Generator) Write(address byte, data ...byte) {
	g.Start()
	g.Byte(address<<1, true)
	for _, b := range data {
		g.Byte(b, true)
	}
	g.Stop()
}

// Read generates a complete read transfer, the last byte is not acknowledged.
func (g *Generator) Read(address byte, data ...byte) {
	g.Start()
	g.Byte(address<<1|1, true)
	for i, b := range data {
		g.Byte(b, i < len(data)-1)
	}
	g.Stop()
}
