//go:build !linux || !cgo

package media

import "image"

const heicSupported = false

func decodeHEIF(_ []byte) (image.Image, error) {
	return nil, ErrHEIFUnsupported
}
