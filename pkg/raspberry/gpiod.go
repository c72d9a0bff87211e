//go:build linux

package raspberry

import (
	"github.com/warthog618/gpiod"
)

// openGpiod requests both lines in one request from the GPIO character device,
// so the events of both lines are delivered in order by one watcher.
func openGpiod(chip string, scl, sda int, terminator string) (*Bus, error) {
	c, err := gpiod.NewChip(chip)
	if err != nil {
		return nil, err
	}

	var b *Bus
	handler := func(evt gpiod.LineEvent) {
		b.edge(evt.Offset == scl, evt.Type == gpiod.LineEventRisingEdge, evt.Timestamp)
	}

	opts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithBothEdges, gpiod.AsInput}
	switch terminator {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	case "none", "":
	default:
		_ = c.Close()
		return nil, ErrInvalidParam
	}

	// the initial levels must be known before the first event arrives
	probe, err := c.RequestLines([]int{scl, sda}, gpiod.AsInput)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	values := make([]int, 2)
	err = probe.Values(values)
	_ = probe.Close()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	b = newBus(values[0] == 1, values[1] == 1)

	lines, err := c.RequestLines([]int{scl, sda}, opts...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	b.release = func() error {
		// Close waits for a running event handler to return.
		if err := lines.Close(); err != nil {
			return err
		}
		return c.Close()
	}
	return b, nil
}
