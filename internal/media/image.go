// Package media normalizes uploaded product and business photos: it decodes
// any supported format, honours EXIF orientation, crops and re-encodes JPEG.
package media

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrHEIFUnsupported = errors.New("heic decoding not supported in this build")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrInvalidCrop     = errors.New("crop rectangle is outside the image")
)

var acceptedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/heic": true,
	"image/heif": true,
}

type SourceMeta struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Crop is a rectangle in source pixels, after orientation is applied.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (c Crop) empty() bool {
	return c.Width <= 0 || c.Height <= 0
}

type Output struct {
	Main  []byte
	Thumb []byte
	Meta  SourceMeta
}

func Accepts(contentType string) bool {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return acceptedContentTypes[ct]
}

// Sniff returns the content type of data, recognising HEIF containers that
// http.DetectContentType reports as octet-stream.
func Sniff(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if isHEIF(data) {
		return "image/heic"
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return http.DetectContentType(sample)
}

func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heif":
		return true
	default:
		return false
	}
}

func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if isHEIF(data) {
			heif, heifErr := decodeHEIF(data)
			if heifErr != nil {
				return nil, "", heifErr
			}
			return heif, "heic", nil
		}
		return nil, "", ErrUnsupportedType
	}

	if strings.EqualFold(format, "jpeg") {
		img = orient(data, img)
	}
	return img, format, nil
}

// orient applies the EXIF orientation tag, ignoring any EXIF error.
func orient(data []byte, img image.Image) image.Image {
	ex, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return img
	}
	o, err := tag.Int(0)
	if err != nil {
		return img
	}
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// Process crops the image to crop (or keeps it whole), then produces a
// square cover of size pixels and a square thumbnail of thumbSize pixels.
func Process(data []byte, crop Crop, size int, thumbSize int, quality int) (Output, error) {
	if size <= 0 || thumbSize <= 0 {
		return Output{}, errors.New("output sizes must be > 0")
	}
	img, format, err := decode(data)
	if err != nil {
		return Output{}, err
	}
	b := img.Bounds()
	meta := SourceMeta{Width: b.Dx(), Height: b.Dy(), Format: format}

	if !crop.empty() {
		rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height).Add(b.Min)
		if !rect.In(b) {
			return Output{}, ErrInvalidCrop
		}
		img = imaging.Crop(img, rect)
	}

	main, err := encode(imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos), quality)
	if err != nil {
		return Output{}, err
	}
	thumb, err := encode(imaging.Fill(img, thumbSize, thumbSize, imaging.Center, imaging.Lanczos), quality)
	if err != nil {
		return Output{}, err
	}
	return Output{Main: main, Thumb: thumb, Meta: meta}, nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
