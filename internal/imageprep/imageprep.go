// Package imageprep normalizes photographs before they are sent to the
// vision model. Phone cameras routinely produce 4000px+ images; downscaling
// keeps the request payload well under the API limit without hurting
// handwriting legibility.
package imageprep

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

const jpegQuality = 88

// Normalize downscales img so its longest side does not exceed maxDim and
// re-encodes it as JPEG. Inputs that cannot be decoded (or are already
// small enough and already JPEG) are passed through untouched together
// with the caller's media type.
func Normalize(data []byte, mediaType string, maxDim int) ([]byte, string) {
	if maxDim <= 0 {
		return data, mediaType
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mediaType
	}

	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		if format == "jpeg" {
			return data, mediaType
		}
		// Re-encode oddball formats so the model always sees JPEG or the
		// original bytes, nothing in between.
	} else if b.Dx() >= b.Dy() {
		img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return data, mediaType
	}
	return buf.Bytes(), "image/jpeg"
}
