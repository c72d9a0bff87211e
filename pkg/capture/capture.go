// Package capture reads and writes the files exchanged with logic analyzers:
// raw SCL/SDA sample tables, parallel line tables and I2C analyzer exports.
package capture

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/port"
)

// ErrMalformedRow is returned for a row which can't be parsed.
var ErrMalformedRow = errors.New("malformed row")

// DataColumn is the column of the data byte in an analyzer export
// (Time, Packet ID, Address, Data, Read/Write, ACK/NAK).
const DataColumn = 3

func newReader(r io.Reader) *csv.Reader {
	c := csv.NewReader(r)
	c.Comment = '#'
	c.FieldsPerRecord = -1
	c.TrimLeadingSpace = true
	c.ReuseRecord = true
	return c
}

// ReadSamples reads "index,scl,sda" rows and calls fn for each sample.
// A leading header row is skipped.
func ReadSamples(r io.Reader, fn func(i2c.Sample)) error {
	c := newReader(r)

	for row := 1; ; row++ {
		rec, err := c.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		s, err := parseSample(rec)
		if err != nil {
			if row == 1 {
				// header
				continue
			}
			line, _ := c.FieldPos(0)
			return fmt.Errorf("line %d: %w", line, err)
		}
		fn(s)
	}
}

func parseSample(rec []string) (i2c.Sample, error) {
	var s i2c.Sample
	if len(rec) < 3 {
		return s, fmt.Errorf("%w: want 3 fields, got %d", ErrMalformedRow, len(rec))
	}

	var err error
	if s.Index, err = strconv.ParseUint(strings.TrimSpace(rec[0]), 0, 64); err != nil {
		return s, fmt.Errorf("%w: index %q", ErrMalformedRow, rec[0])
	}
	if s.SCL, err = strconv.ParseBool(strings.TrimSpace(rec[1])); err != nil {
		return s, fmt.Errorf("%w: scl %q", ErrMalformedRow, rec[1])
	}
	if s.SDA, err = strconv.ParseBool(strings.TrimSpace(rec[2])); err != nil {
		return s, fmt.Errorf("%w: sda %q", ErrMalformedRow, rec[2])
	}
	return s, nil
}

// ReadLogic reads "index,line0,line1,..." rows of a parallel bus capture, e.g.
// the RS, RW, E and D0..D7 lines of a display in 8 bit mode, and calls fn
// for each row. A leading header row is skipped.
func ReadLogic(r io.Reader, fn func(port.Logic)) error {
	c := newReader(r)

	for row := 1; ; row++ {
		rec, err := c.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		l, err := parseLogic(rec)
		if err != nil {
			if row == 1 {
				// header
				continue
			}
			line, _ := c.FieldPos(0)
			return fmt.Errorf("line %d: %w", line, err)
		}
		fn(l)
	}
}

func parseLogic(rec []string) (port.Logic, error) {
	var l port.Logic
	if len(rec) < 2 {
		return l, fmt.Errorf("%w: want index and lines, got %d fields", ErrMalformedRow, len(rec))
	}

	index, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 0, 64)
	if err != nil {
		return l, fmt.Errorf("%w: index %q", ErrMalformedRow, rec[0])
	}
	l.Span = port.Span{Start: index, End: index}

	l.Lines = make([]port.StateType, len(rec)-1)
	for i, field := range rec[1:] {
		v, err := strconv.ParseBool(strings.TrimSpace(field))
		if err != nil {
			return l, fmt.Errorf("%w: line %d %q", ErrMalformedRow, i, field)
		}
		l.Lines[i] = port.Level(v)
	}
	return l, nil
}

// WriteSamples writes the samples as "index,scl,sda" rows with a header.
func WriteSamples(w io.Writer, samples []i2c.Sample) error {
	c := csv.NewWriter(w)
	if err := c.Write([]string{"index", "scl", "sda"}); err != nil {
		return err
	}

	level := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}
	for _, s := range samples {
		if err := c.Write([]string{strconv.FormatUint(s.Index, 10), level(s.SCL), level(s.SDA)}); err != nil {
			return err
		}
	}

	c.Flush()
	return c.Error()
}

// ReadTable reads the data bytes of an analyzer export. The header row is skipped.
func ReadTable(r io.Reader) ([]byte, error) {
	c := newReader(r)

	if _, err := c.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var values []byte
	for {
		rec, err := c.Read()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return values, err
		}

		line, _ := c.FieldPos(0)
		if len(rec) <= DataColumn {
			return values, fmt.Errorf("line %d: %w: no data column", line, ErrMalformedRow)
		}

		field := strings.ToLower(strings.TrimSpace(rec[DataColumn]))
		v, err := strconv.ParseUint(strings.TrimPrefix(field, "0x"), 16, 8)
		if err != nil {
			return values, fmt.Errorf("line %d: %w: data %q", line, ErrMalformedRow, rec[DataColumn])
		}
		values = append(values, byte(v))
	}
}
