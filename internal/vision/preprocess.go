package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// normalisation applied channel-wise as (v - mean) / std on 0..255 values
type normalisation struct {
	mean, std float32
}

var (
	detectorNorm = normalisation{mean: 127.5, std: 128}
	embedderNorm = normalisation{mean: 127.5, std: 127.5}
)

// resize scales the src rectangle of img to a size x size RGBA image.
func resize(img image.Image, src image.Rectangle, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// toCHW lays out an RGBA image as planar R, G, B float32 values.
func toCHW(img *image.RGBA, n normalisation) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	out := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			i := y*w + x
			out[i] = (float32(px[0]) - n.mean) / n.std
			out[plane+i] = (float32(px[1]) - n.mean) / n.std
			out[2*plane+i] = (float32(px[2]) - n.mean) / n.std
		}
	}
	return out
}

// faceRegion grows box by pad of its size on each side and clips it to
// bounds. It reports false when the box is empty after clipping.
func faceRegion(box [4]float32, bounds image.Rectangle, pad float32) (image.Rectangle, bool) {
	w, h := box[2]-box[0], box[3]-box[1]
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	r := image.Rect(
		int(box[0]-w*pad), int(box[1]-h*pad),
		int(box[2]+w*pad), int(box[3]+h*pad),
	).Add(bounds.Min).Intersect(bounds)
	return r, !r.Empty()
}
