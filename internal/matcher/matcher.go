// Package matcher resolves a probe face embedding to at most one enrolled identity.
package matcher

import (
	"fmt"
	"math"

	"github.com/your-org/attendance/internal/models"
)

// DefaultTolerance is the largest Euclidean distance still accepted as the same face.
const DefaultTolerance = 0.45

// Strategy selects how candidates within tolerance are chosen.
type Strategy string

const (
	// StrategyFirst returns the first acceptable candidate in supplied order.
	StrategyFirst Strategy = "first"
	// StrategyBest scans every candidate and returns the closest acceptable one.
	StrategyBest Strategy = "best"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFirst:
		return StrategyFirst, nil
	case StrategyBest:
		return StrategyBest, nil
	}
	return "", fmt.Errorf("unknown match strategy %q", s)
}

// Candidate is an unsealed enrolled embedding.
type Candidate struct {
	IdentityID string
	Embedding  models.Embedding
}

// Result describes an accepted match. Confidence is 1 - Distance and is not
// clamped, so it can leave [0, 1] for unusual inputs.
type Result struct {
	IdentityID string  `json:"identity_id"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Distance is the Euclidean distance between two embeddings.
func Distance(a, b models.Embedding) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

type Matcher struct {
	tolerance float64
	strategy  Strategy
}

func New(tolerance float64, strategy Strategy) *Matcher {
	if strategy == "" {
		strategy = StrategyFirst
	}
	return &Matcher{tolerance: tolerance, strategy: strategy}
}

func (m *Matcher) Tolerance() float64 { return m.tolerance }

func (m *Matcher) Strategy() Strategy { return m.strategy }

// Accepts reports whether distance d falls within tolerance.
func (m *Matcher) Accepts(d float64) bool {
	return d <= m.tolerance
}

// Match evaluates candidates in order. The bool is false when nothing is
// within tolerance; that is a normal outcome, not an error.
func (m *Matcher) Match(probe models.Embedding, candidates []Candidate) (Result, bool) {
	var best Result
	found := false

	for _, c := range candidates {
		d := Distance(probe, c.Embedding)
		if !m.Accepts(d) {
			continue
		}
		if m.strategy == StrategyFirst {
			return newResult(c.IdentityID, d), true
		}
		if !found || d < best.Distance {
			best = newResult(c.IdentityID, d)
			found = true
		}
	}
	return best, found
}

func newResult(id string, d float64) Result {
	return Result{IdentityID: id, Distance: d, Confidence: 1 - d}
}
