// Package raspberry is the watcher for the gpio lines of a bit banged or
// tapped I2C bus. Each edge of SCL or SDA is delivered as a sample of both lines.
package raspberry

import (
	"fmt"
	"sync"
	"time"

	"github.com/womat/debug"
	"lcdsniff/pkg/i2c"
)

var (
	ErrInvalidParam = fmt.Errorf("invalid parameters")
	ErrUnsupported  = fmt.Errorf("gpio driver not supported on this platform")
)

// bufferSize is the number of samples buffered between the line watcher and the decoder.
const bufferSize = 4096

// Bus represents the two requested lines of the bus.
type Bus struct {
	// C receives a sample on each edge, it is closed by Close.
	C chan i2c.Sample

	mu       sync.Mutex
	scl, sda bool
	// release stops watching the lines.
	release func() error
}

// Open requests the scl and sda lines with the given driver (gpiod or gpiomem)
// and starts watching both edges.
func Open(driver, chip string, scl, sda int, terminator string) (*Bus, error) {
	if scl == sda || scl < 0 || sda < 0 {
		return nil, ErrInvalidParam
	}

	switch driver {
	case "gpiod", "":
		return openGpiod(chip, scl, sda, terminator)
	case "gpiomem":
		return openGpiomem(scl, sda, terminator)
	default:
		return nil, fmt.Errorf("%w: driver %q", ErrInvalidParam, driver)
	}
}

func newBus(scl, sda bool) *Bus {
	return &Bus{C: make(chan i2c.Sample, bufferSize), scl: scl, sda: sda}
}

// edge records the new level of one line and sends the sample of both lines.
func (b *Bus) edge(isSCL, level bool, t time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isSCL {
		b.scl = level
	} else {
		b.sda = level
	}

	if len(b.C) == cap(b.C) {
		debug.ErrorLog.Println("sample buffer full, decoder is too slow")
	}
	b.C <- i2c.Sample{Index: uint64(t), SCL: b.scl, SDA: b.sda}
}

// Close releases the lines and closes C.
func (b *Bus) Close() error {
	var err error
	if b.release != nil {
		err = b.release()
	}

	b.mu.Lock()
	close(b.C)
	b.mu.Unlock()
	return err
}
