package vision

import (
	"fmt"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Face is one detector hit in source image pixels.
type Face struct {
	Box       [4]float32 // x1, y1, x2, y2
	Score     float32
	Landmarks [5][2]float32
}

// det_10g runs at 640x640 and emits, per stride, scores [N,1], box
// distances [N,4] and landmark offsets [N,10] with two anchors per cell.
const (
	detInputSize    = 640
	detAnchors      = 2
	detNMSThreshold = 0.4
)

type strideOutputs struct {
	stride   int
	score    string
	box      string
	landmark string
}

var detStrides = []strideOutputs{
	{stride: 8, score: "448", box: "451", landmark: "454"},
	{stride: 16, score: "471", box: "474", landmark: "477"},
	{stride: 32, score: "494", box: "497", landmark: "500"},
}

// Detector wraps a RetinaFace-style ONNX session. It is not safe for
// concurrent use; the tensors are bound to the session.
type Detector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	scores    []*ort.Tensor[float32]
	boxes     []*ort.Tensor[float32]
	landmarks []*ort.Tensor[float32]
	threshold float32
}

// NewDetector loads the detection model. opts may be nil.
func NewDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	d := &Detector{threshold: threshold}

	var err error
	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, detInputSize, detInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	var names []string
	var values []ort.Value
	newOutput := func(name string, rows, cols int64) (*ort.Tensor[float32], error) {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(rows, cols))
		if err != nil {
			return nil, fmt.Errorf("create output tensor %s: %w", name, err)
		}
		names = append(names, name)
		values = append(values, t)
		return t, nil
	}

	outputs := []struct {
		cols int64
		name func(strideOutputs) string
		dst  *[]*ort.Tensor[float32]
	}{
		{1, func(s strideOutputs) string { return s.score }, &d.scores},
		{4, func(s strideOutputs) string { return s.box }, &d.boxes},
		{10, func(s strideOutputs) string { return s.landmark }, &d.landmarks},
	}
	for _, out := range outputs {
		for _, s := range detStrides {
			cells := int64(detInputSize/s.stride) * int64(detInputSize/s.stride) * detAnchors
			t, err := newOutput(out.name(s), cells, out.cols)
			if err != nil {
				d.Close()
				return nil, err
			}
			*out.dst = append(*out.dst, t)
		}
	}

	d.session, err = ort.NewAdvancedSession(modelPath,
		[]string{"input.1"}, names,
		[]ort.Value{d.input}, values,
		opts,
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create detector session: %w", err)
	}
	return d, nil
}

// Detect runs the model on a CHW input of detInputSize squared and returns
// faces scaled to a srcW x srcH image, highest score first.
func (d *Detector) Detect(chw []float32, srcW, srcH int) ([]Face, error) {
	copy(d.input.GetData(), chw)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	scaleX := float32(srcW) / detInputSize
	scaleY := float32(srcH) / detInputSize

	var faces []Face
	for i, s := range detStrides {
		faces = append(faces, decodeStride(
			d.scores[i].GetData(), d.boxes[i].GetData(), d.landmarks[i].GetData(),
			s.stride, d.threshold, scaleX, scaleY, srcW, srcH,
		)...)
	}
	return suppress(faces, detNMSThreshold), nil
}

// decodeStride turns one stride's raw outputs into faces. Box outputs are
// distances from the anchor centre to each edge, in stride units.
func decodeStride(scores, boxes, landmarks []float32, stride int, threshold, scaleX, scaleY float32, srcW, srcH int) []Face {
	var faces []Face
	side := detInputSize / stride
	st := float32(stride)

	for cell := 0; cell < side*side; cell++ {
		ax := float32(cell%side) * st
		ay := float32(cell/side) * st

		for a := 0; a < detAnchors; a++ {
			i := cell*detAnchors + a
			if i >= len(scores) || scores[i] < threshold {
				continue
			}

			b := boxes[i*4 : i*4+4]
			f := Face{
				Score: scores[i],
				Box: [4]float32{
					clamp((ax-b[0]*st)*scaleX, 0, float32(srcW)),
					clamp((ay-b[1]*st)*scaleY, 0, float32(srcH)),
					clamp((ax+b[2]*st)*scaleX, 0, float32(srcW)),
					clamp((ay+b[3]*st)*scaleY, 0, float32(srcH)),
				},
			}
			lm := landmarks[i*10 : i*10+10]
			for p := 0; p < 5; p++ {
				f.Landmarks[p] = [2]float32{(ax + lm[p*2]*st) * scaleX, (ay + lm[p*2+1]*st) * scaleY}
			}
			faces = append(faces, f)
		}
	}
	return faces
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	for _, group := range [][]*ort.Tensor[float32]{d.scores, d.boxes, d.landmarks} {
		for _, t := range group {
			t.Destroy()
		}
	}
}

// suppress sorts faces by score and drops any overlapping a stronger one by
// more than threshold IoU.
func suppress(faces []Face, threshold float32) []Face {
	sort.Slice(faces, func(i, j int) bool { return faces[i].Score > faces[j].Score })

	kept := faces[:0:0]
	for _, f := range faces {
		overlaps := false
		for _, k := range kept {
			if overlap(f.Box, k.Box) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, f)
		}
	}
	return kept
}

// overlap is the intersection over union of two boxes.
func overlap(a, b [4]float32) float32 {
	w := math.Min(float64(a[2]), float64(b[2])) - math.Max(float64(a[0]), float64(b[0]))
	h := math.Min(float64(a[3]), float64(b[3])) - math.Max(float64(a[1]), float64(b[1]))
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := float32(w * h)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	return float32(math.Max(float64(lo), math.Min(float64(hi), float64(v))))
}
