package vision

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/attendance/internal/models"
)

// Embedder maps an aligned face crop to a 128-d descriptor. Like Detector
// it is not safe for concurrent use.
type Embedder struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
}

// NewEmbedder loads a model taking [1,3,size,size] and producing [1,128].
// Tensor names are read from the model itself.
func NewEmbedder(modelPath string, size int, opts *ort.SessionOptions) (*Embedder, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect embedder model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("embedder model %s has no inputs or outputs", modelPath)
	}

	e := &Embedder{size: size}
	e.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	e.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, models.EmbeddingDim))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{e.input}, []ort.Value{e.output},
		opts,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}
	return e, nil
}

// Embed runs the model on a CHW crop. The descriptor is returned unscaled;
// match tolerances are calibrated on raw model output.
func (e *Embedder) Embed(chw []float32) (models.Embedding, error) {
	copy(e.input.GetData(), chw)
	if err := e.session.Run(); err != nil {
		return models.Embedding{}, fmt.Errorf("run embedding: %w", err)
	}
	return models.NewEmbeddingFromFloat32(e.output.GetData())
}

func (e *Embedder) Size() int { return e.size }

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.input != nil {
		e.input.Destroy()
	}
	if e.output != nil {
		e.output.Destroy()
	}
}
