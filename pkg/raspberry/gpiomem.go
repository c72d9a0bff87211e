//go:build linux

package raspberry

import (
	"time"

	"github.com/warthog618/gpio"
)

// openGpiomem watches the lines through the /dev/gpiomem register interface
// for kernels without the GPIO character device.
// Timestamps are taken when the watcher handles the interrupt.
func openGpiomem(scl, sda int, terminator string) (*Bus, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	pins := []*gpio.Pin{gpio.NewPin(scl), gpio.NewPin(sda)}
	for _, p := range pins {
		p.Input()
		switch terminator {
		case "pullup":
			p.PullUp()
		case "pulldown":
			p.PullDown()
		case "none", "":
		default:
			_ = gpio.Close()
			return nil, ErrInvalidParam
		}
	}

	b := newBus(bool(pins[0].Read()), bool(pins[1].Read()))
	start := time.Now()

	handler := func(p *gpio.Pin) {
		b.edge(p.Pin() == scl, bool(p.Read()), time.Since(start))
	}

	for i, p := range pins {
		if err := p.Watch(gpio.EdgeBoth, handler); err != nil {
			for _, w := range pins[:i] {
				w.Unwatch()
			}
			_ = gpio.Close()
			return nil, err
		}
	}

	b.release = func() error {
		for _, p := range pins {
			p.Unwatch()
		}
		return gpio.Close()
	}
	return b, nil
}
