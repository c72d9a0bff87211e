// Package screen models the display data RAM of an HD44780 controller, so the
// decoded command and data bytes can be shown as the text on the display.
package screen

import (
	"strings"
	"sync"

	"lcdsniff/pkg/hd44780"
)

const (
	// lineSize is the DDRAM size of each line in 2 line mode, 80 bytes in total.
	lineSize = 40
	// secondLine is the DDRAM address of the second line.
	secondLine = 0x40
	// entry mode flag: increment the address counter
	entryIncrement = 0x02
)

// Screen is the DDRAM and address counter of a display.
// The DDRAM is modeled in 2 line mode: addresses 0x00..0x27 hold the first
// line, 0x40..0x67 the second; the address counter wraps from 0x27 to 0x40
// and from 0x67 to 0x00. 4 line displays show both halves of each line.
// It is safe for concurrent use.
type Screen struct {
	mu            sync.RWMutex
	columns, rows int
	ddram         [2 * lineSize]byte
	address       byte
	increment     bool
	// version is incremented on each change of the DDRAM.
	version uint64
}

// New returns a blank screen with the given geometry.
func New(columns, rows int) *Screen {
	s := &Screen{columns: columns, rows: rows}
	s.clear()
	return s
}

func (s *Screen) clear() {
	for i := range s.ddram {
		s.ddram[i] = ' '
	}
	s.address = 0
	s.increment = true
	s.version++
}

// normalize maps an address outside of both lines into its line.
func normalize(a byte) byte {
	if a&secondLine != 0 {
		return secondLine + (a&^secondLine)%lineSize
	}
	return a % lineSize
}

// index returns the position of a normalized address in the DDRAM.
func index(a byte) int {
	if a >= secondLine {
		return lineSize + int(a-secondLine)
	}
	return int(a)
}

// Apply updates the screen with a decoded byte.
// It returns true if the displayed text may have changed.
func (s *Screen) Apply(b hd44780.DecodedByte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Mode == hd44780.ModeData {
		s.ddram[index(s.address)] = b.Value
		s.advance()
		s.version++
		return true
	}

	cmd := hd44780.Lookup(b.Value)
	switch cmd.Opcode {
	case hd44780.ClearDisplay:
		s.clear()
		return true
	case hd44780.ReturnHome:
		s.address = 0
	case hd44780.EntryModeSet:
		s.increment = cmd.Flags()&entryIncrement != 0
	case hd44780.SetDDRAMAddress:
		s.address = normalize(cmd.Operand)
	}
	return false
}

// advance moves the address counter to the next DDRAM position.
func (s *Screen) advance() {
	i := index(s.address)
	if s.increment {
		i = (i + 1) % len(s.ddram)
	} else {
		i = (i + len(s.ddram) - 1) % len(s.ddram)
	}

	if i >= lineSize {
		s.address = secondLine + byte(i-lineSize)
		return
	}
	s.address = byte(i)
}

// Version returns a counter which changes with every change of the text.
func (s *Screen) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Address returns the address counter.
func (s *Screen) Address() byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Lines returns the visible text, one string per row.
// Rows 2 and 3 of a 4 line display continue rows 0 and 1 in DDRAM.
func (s *Screen) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, s.rows)
	for r := 0; r < s.rows; r++ {
		line, offset := (r%2)*lineSize, (r/2)*s.columns
		var sb strings.Builder
		for c := 0; c < s.columns; c++ {
			sb.WriteByte(printable(s.ddram[line+(offset+c)%lineSize]))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// String returns the visible text with rows separated by line feeds.
func (s *Screen) String() string {
	return strings.Join(s.Lines(), "\n")
}

func printable(b byte) byte {
	if b < 0x20 || b > 0x7e {
		return '?'
	}
	return b
}
