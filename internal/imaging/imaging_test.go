package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/envisage/internal/apperr"
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestIsImageName(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.bmp", "e.tif", "f.TIFF", "g.webp"} {
		assert.True(t, IsImageName(name), name)
	}
	for _, name := range []string{"a.gif", "notes.md", "noext", "shot.png.part"} {
		assert.False(t, IsImageName(name), name)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	_, _, err := Decode([]byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDecode))

	_, _, err = Decode(nil)
	assert.True(t, errors.Is(err, apperr.ErrDecode))
}

func TestCanonicalize_SamePixelsSameFingerprint(t *testing.T) {
	img := solid(color.RGBA{R: 200, A: 255})
	pngBytes, err := EncodePNG(img)
	require.NoError(t, err)

	a, err := Canonicalize(pngBytes)
	require.NoError(t, err)
	b, err := Canonicalize(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	other, err := EncodePNG(solid(color.RGBA{B: 200, A: 255}))
	require.NoError(t, err)
	c, err := Canonicalize(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestProbe(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(color.White), nil))
	assert.True(t, Probe(buf.Bytes()))
	assert.False(t, Probe([]byte("text/plain")))
}
