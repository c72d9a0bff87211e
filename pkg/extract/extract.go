// Package extract recovers the text written to an LCD backpack directly from
// the expander bytes of an I2C analyzer export.
//
// This is a degraded, timing-unsafe shortcut: it neither checks the bus
// address nor acknowledges, nor the enable edges. Each byte with RS and E
// set is taken as one nibble transfer and consecutive pairs are combined.
// Use the pipeline package for a decoding that follows the protocols.
package extract

const (
	// RS is the register select pin of the backpack.
	RS = 0x01
	// EN is the enable pin of the backpack.
	EN = 0x04
)

// Strobes returns the bytes with both RS and E set, i.e. data nibble strobes.
func Strobes(values []byte) []byte {
	var out []byte
	for _, v := range values {
		if v&RS != 0 && v&EN != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Shortcut combines pairs of data strobes (high nibble first) to characters.
// A trailing unpaired strobe is dropped.
func Shortcut(values []byte) []byte {
	strobes := Strobes(values)
	out := make([]byte, 0, len(strobes)/2)
	for i := 0; i+1 < len(strobes); i += 2 {
		high, low := strobes[i], strobes[i+1]
		out = append(out, high&0xf0|low>>4)
	}
	return out
}
