package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	raw := encodePNG(t, solid(4, 3, color.White))

	img, err := DecodeImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, 4, img.Image.Bounds().Dx())
	assert.Equal(t, raw, img.Data)

	img, err = DecodeImage(base64.RawStdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(8, 8, color.Black), nil))
	img, err = DecodeImage(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestDecodeImage_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "   ",
		"not base64":     "@@@@",
		"not an image":   base64.StdEncoding.EncodeToString([]byte("hello world")),
		"data url plain": "data:image/png,abcd",
		"no comma":       "data:image/png;base64",
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeImage(payload)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestToCHW(t *testing.T) {
	img := solid(2, 2, color.RGBA{R: 255, G: 127, B: 0, A: 255})
	out := toCHW(img, normalisation{mean: 127.5, std: 127.5})

	require.Len(t, out, 12)
	assert.InDelta(t, 1.0, out[0], 1e-6)
	assert.InDelta(t, -0.5/127.5, out[4], 1e-6)
	assert.InDelta(t, -1.0, out[8], 1e-6)
}

func TestResize(t *testing.T) {
	img := solid(10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	out := resize(img, image.Rect(0, 0, 10, 10), 4)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	px := out.RGBAAt(2, 2)
	assert.InDelta(t, 10, int(px.R), 1)
	assert.InDelta(t, 20, int(px.G), 1)
	assert.InDelta(t, 30, int(px.B), 1)
}

func TestFaceRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	r, ok := faceRegion([4]float32{20, 20, 60, 60}, bounds, 0.1)
	require.True(t, ok)
	assert.Equal(t, image.Rect(16, 16, 64, 64), r)

	r, ok = faceRegion([4]float32{0, 0, 50, 50}, bounds, 0.1)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 55, 55), r)

	_, ok = faceRegion([4]float32{30, 30, 30, 50}, bounds, 0.1)
	assert.False(t, ok)

	offset := image.Rect(50, 50, 150, 150)
	r, ok = faceRegion([4]float32{0, 0, 10, 10}, offset, 0)
	require.True(t, ok)
	assert.Equal(t, image.Rect(50, 50, 60, 60), r)
}

func TestSuppress(t *testing.T) {
	faces := []Face{
		{Box: [4]float32{0, 0, 10, 10}, Score: 0.7},
		{Box: [4]float32{1, 1, 11, 11}, Score: 0.9},
		{Box: [4]float32{50, 50, 60, 60}, Score: 0.8},
	}
	kept := suppress(faces, 0.4)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, float32(0.8), kept[1].Score)
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, float32(1), overlap([4]float32{0, 0, 10, 10}, [4]float32{0, 0, 10, 10}))
	assert.Equal(t, float32(0), overlap([4]float32{0, 0, 10, 10}, [4]float32{20, 20, 30, 30}))
	assert.InDelta(t, 25.0/175.0, overlap([4]float32{0, 0, 10, 10}, [4]float32{5, 5, 15, 15}), 1e-6)
}

func TestDecodeStride(t *testing.T) {
	const stride = 32
	side := detInputSize / stride
	n := side * side * detAnchors
	scores := make([]float32, n)
	boxes := make([]float32, n*4)
	landmarks := make([]float32, n*10)

	// cell (x=2, y=1), second anchor
	i := (1*side+2)*detAnchors + 1
	scores[i] = 0.95
	copy(boxes[i*4:], []float32{1, 1, 1, 1})

	faces := decodeStride(scores, boxes, landmarks, stride, 0.5, 0.5, 0.5, 320, 320)
	require.Len(t, faces, 1)
	f := faces[0]
	assert.Equal(t, float32(0.95), f.Score)
	// anchor centre (64, 32), one stride each way, then halved
	assert.Equal(t, [4]float32{16, 0, 48, 32}, f.Box)
	assert.Equal(t, [2]float32{32, 16}, f.Landmarks[0])
}
