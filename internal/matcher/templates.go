package matcher

import (
	"log/slog"

	"github.com/your-org/attendance/internal/models"
)

// TemplateOpener turns a sealed template back into an embedding.
type TemplateOpener interface {
	Open(sealed string) (models.Embedding, error)
}

// ScanStats summarises one scan over stored identities.
type ScanStats struct {
	Evaluated int // templates unsealed and compared
	Skipped   int // identities without a usable template
}

// MatchTemplates matches probe against the sealed templates of identities in
// the order given. Templates are opened lazily; one that is missing or fails
// to open is skipped and the scan continues. With StrategyFirst, templates
// after the accepted one are never opened.
func (m *Matcher) MatchTemplates(probe models.Embedding, identities []models.Identity, opener TemplateOpener) (Result, *models.Identity, ScanStats) {
	var (
		stats ScanStats
		best  Result
		match *models.Identity
	)

	for i := range identities {
		ident := &identities[i]
		if !ident.HasTemplate() {
			stats.Skipped++
			continue
		}

		emb, err := opener.Open(ident.Template)
		if err != nil {
			stats.Skipped++
			slog.Warn("skipping unreadable template", "digital_id", ident.DigitalID, "error", err)
			continue
		}
		stats.Evaluated++

		d := Distance(probe, emb)
		if !m.Accepts(d) {
			continue
		}
		if m.strategy == StrategyFirst {
			return newResult(ident.DigitalID, d), ident, stats
		}
		if match == nil || d < best.Distance {
			best = newResult(ident.DigitalID, d)
			match = ident
		}
	}
	return best, match, stats
}
