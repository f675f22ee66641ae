// Package imaging decodes incoming screenshots and produces the canonical
// PNG encoding used for clipboard captures and content fingerprints.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/checksum"
)

// Extensions accepted by the directory watcher.
var Extensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// IsImageName reports whether name carries a supported image extension.
func IsImageName(name string) bool {
	_, ok := Extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Decode decodes data into an image. Corrupt or unknown input yields an
// error wrapping apperr.ErrDecode.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("imaging: empty input: %w", apperr.ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: %v: %w", err, apperr.ErrDecode)
	}
	return img, format, nil
}

// Probe reports whether data looks like a decodable image without decoding pixels.
func Probe(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

// EncodePNG re-encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Canonical holds a decoded image together with its PNG re-encoding and the
// fingerprint of that encoding.
type Canonical struct {
	Image       image.Image
	PNG         []byte
	Fingerprint string
}

// Canonicalize decodes data, re-encodes it as PNG and fingerprints the result,
// so the same pixels copied from different applications compare equal.
func Canonicalize(data []byte) (*Canonical, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &Canonical{Image: img, PNG: encoded, Fingerprint: checksum.Sum(encoded)}, nil
}
