//go:build !linux

package raspberry

func openGpiod(chip string, scl, sda int, terminator string) (*Bus, error) {
	return nil, ErrUnsupported
}

func openGpiomem(scl, sda int, terminator string) (*Bus, error) {
	return nil, ErrUnsupported
}
