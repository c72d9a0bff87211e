package hd44780

import "fmt"

// SymbolClass is the presentation class of a data byte.
type SymbolClass int

const (
	// Printable is a character in the printable ASCII range 0x20..0x7e.
	Printable SymbolClass = iota
	// LineBreak is a line feed.
	LineBreak
	// Raw is any other byte, e.g. a custom character or a ROM glyph.
	Raw
)

func (c SymbolClass) String() string {
	switch c {
	case Printable:
		return "printable"
	case LineBreak:
		return "line-break"
	default:
		return "raw"
	}
}

// MarshalText renders the class in records.
func (c SymbolClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Symbol is a data byte classified for presentation.
type Symbol struct {
	Class SymbolClass `json:"class"`
	Value byte        `json:"value"`
}

// Classify returns the presentation class of a data byte.
// No protocol meaning is derived from the value.
func Classify(b byte) Symbol {
	switch {
	case b >= 0x20 && b <= 0x7e:
		return Symbol{Class: Printable, Value: b}
	case b == '\n':
		return Symbol{Class: LineBreak, Value: b}
	default:
		return Symbol{Class: Raw, Value: b}
	}
}

// Text returns the text representation of the symbol for a plain text output.
// Raw bytes are written as hex escapes.
func (s Symbol) Text() string {
	switch s.Class {
	case Printable:
		return string(rune(s.Value))
	case LineBreak:
		return "\n"
	default:
		return fmt.Sprintf("\\x%02x", s.Value)
	}
}

func (s Symbol) String() string {
	switch s.Class {
	case Printable:
		return fmt.Sprintf("'%c'", s.Value)
	case LineBreak:
		return "\\n"
	default:
		return fmt.Sprintf("0x%02x", s.Value)
	}
}
