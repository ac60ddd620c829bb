package vision

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
)

const facePadding = 0.1

// Pipeline is the ONNX Extractor: detect faces, crop each, embed.
type Pipeline struct {
	mu       sync.Mutex
	detector *Detector
	embedder *Embedder
}

// NewPipeline loads both models. The ONNX runtime environment must already
// be initialised.
func NewPipeline(cfg config.VisionConfig) (*Pipeline, error) {
	detPath := filepath.Join(cfg.ModelsDir, cfg.DetectorModel)
	embPath := filepath.Join(cfg.ModelsDir, cfg.EmbedderModel)

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath, "input", cfg.EmbedderInput)
	emb, err := NewEmbedder(embPath, cfg.EmbedderInput, nil)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Pipeline{detector: det, embedder: emb}, nil
}

// Extract returns one embedding per detected face, strongest detection first.
func (p *Pipeline) Extract(img image.Image) ([]models.Embedding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() { observability.ExtractDuration.Observe(time.Since(start).Seconds()) }()

	bounds := img.Bounds()
	faces, err := p.detector.Detect(toCHW(resize(img, bounds, detInputSize), detectorNorm), bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	var out []models.Embedding
	for _, f := range faces {
		region, ok := faceRegion(f.Box, bounds, facePadding)
		if !ok {
			continue
		}
		emb, err := p.embedder.Embed(toCHW(resize(img, region, p.embedder.Size()), embedderNorm))
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		out = append(out, emb)
	}

	if len(out) == 0 {
		return nil, ErrNoFace
	}
	slog.Debug("faces extracted", "count", len(out), "top_score", faces[0].Score)
	return out, nil
}

// Close releases the ONNX sessions.
func (p *Pipeline) Close() {
	p.detector.Close()
	p.embedder.Close()
}
