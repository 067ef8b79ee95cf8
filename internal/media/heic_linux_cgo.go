//go:build linux && cgo

package media

import (
	"bytes"
	"image"

	"github.com/jdeng/goheif"
)

const heicSupported = true

func decodeHEIF(data []byte) (image.Image, error) {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}
