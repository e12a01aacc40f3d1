//go:build !linux

package hook

func OpenKeyboards(opts Options) (KeyDevice, error) {
	return nil, ErrNotAvailable
}

func OpenPointers(opts Options) (PointerDevice, error) {
	return nil, ErrNotAvailable
}
