package hd44780

import (
	"encoding/json"
	"fmt"
)

// Opcode is the bit which identifies an instruction of the controller.
// The instruction is given by the highest bit set in a command byte,
// the lower bits are its flags or operand.
type Opcode byte

const (
	ClearDisplay    Opcode = 0x01
	ReturnHome      Opcode = 0x02
	EntryModeSet    Opcode = 0x04
	DisplayControl  Opcode = 0x08
	CursorShift     Opcode = 0x10
	FunctionSet     Opcode = 0x20
	SetCGRAMAddress Opcode = 0x40
	SetDDRAMAddress Opcode = 0x80
)

// opcodes is ordered from the highest to the lowest bit.
// hasOperand marks instructions whose lower bits are an address.
var opcodes = [...]struct {
	mask        Opcode
	name        string
	description string
	hasOperand  bool
}{
	{SetDDRAMAddress, "set-ddram", "Set ddram address", true},
	{SetCGRAMAddress, "set-cgram", "Set cgram address", true},
	{FunctionSet, "function-set", "Function Set", false},
	{CursorShift, "cursor-shift", "Cursor Shift", false},
	{DisplayControl, "display-control", "Display Control", false},
	{EntryModeSet, "entry-mode-set", "Entry Mode Set", false},
	{ReturnHome, "return-home", "Return Home", false},
	{ClearDisplay, "clear-display", "Clear Display", false},
}

// Command is a decoded command byte.
type Command struct {
	// Value is the raw command byte.
	Value byte `json:"value"`
	// Opcode is 0 for an unrecognized command.
	Opcode Opcode `json:"opcode"`
	Name   string `json:"name,omitempty"`
	// Operand is the address of the set address instructions.
	Operand    byte `json:"-"`
	HasOperand bool `json:"-"`

	description string
}

// Lookup identifies a command byte by its highest set opcode bit.
func Lookup(b byte) Command {
	c := Command{Value: b}
	for _, op := range opcodes {
		if b&byte(op.mask) != byte(op.mask) {
			continue
		}

		c.Opcode = op.mask
		c.Name = op.name
		c.description = op.description
		if op.hasOperand {
			c.Operand = b &^ byte(op.mask)
			c.HasOperand = true
		}
		break
	}
	return c
}

// Known reports whether the command matched an opcode.
func (c Command) Known() bool {
	return c.Opcode != 0
}

// Flags returns the bits below the opcode.
func (c Command) Flags() byte {
	return c.Value &^ byte(c.Opcode)
}

// MarshalJSON writes the operand whenever the instruction has one, address 0 included.
func (c Command) MarshalJSON() ([]byte, error) {
	v := struct {
		Value   byte   `json:"value"`
		Opcode  Opcode `json:"opcode"`
		Name    string `json:"name,omitempty"`
		Operand *byte  `json:"operand,omitempty"`
	}{Value: c.Value, Opcode: c.Opcode, Name: c.Name}
	if c.HasOperand {
		operand := c.Operand
		v.Operand = &operand
	}
	return json.Marshal(v)
}

func (c Command) String() string {
	switch {
	case !c.Known():
		return fmt.Sprintf("CMD 0x%02x", c.Value)
	case c.HasOperand:
		return fmt.Sprintf("%s 0x%02x", c.description, c.Operand)
	default:
		return c.description
	}
}
