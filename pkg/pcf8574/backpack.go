package pcf8574

// Pins of an LCD backpack.
const (
	PinRS        = 0x01
	PinRW        = 0x02
	PinEnable    = 0x04
	PinBacklight = 0x08
)

// Backpack encodes display controller transfers into the port bytes a
// backpack driver writes: for each nibble the value is set up, then strobed
// with the enable pin high and low.
type Backpack struct {
	Backlight bool
}

// Command returns the port bytes writing an instruction.
func (b Backpack) Command(v byte) []byte {
	return b.encode(0, v)
}

// Data returns the port bytes writing a data byte.
func (b Backpack) Data(v byte) []byte {
	return b.encode(PinRS, v)
}

// Text returns the port bytes writing each byte of s as data.
func (b Backpack) Text(s string) []byte {
	var out []byte
	for i := 0; i < len(s); i++ {
		out = append(out, b.Data(s[i])...)
	}
	return out
}

func (b Backpack) encode(mode byte, v byte) []byte {
	if b.Backlight {
		mode |= PinBacklight
	}
	out := make([]byte, 0, 6)
	for _, nibble := range []byte{v & 0xf0, v << 4} {
		p := nibble | mode
		out = append(out, p, p|PinEnable, p&^PinEnable)
	}
	return out
}
