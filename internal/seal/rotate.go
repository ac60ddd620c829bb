package seal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

// TemplateStore is the store access a key rotation needs.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]models.Identity, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, template string) error
}

// RotateReport summarises a Rotate run.
type RotateReport struct {
	Total    int
	Resealed int
	// Corrupt lists digital ids whose template could not be opened with the
	// current key. They are left untouched.
	Corrupt []string
}

// Rotate opens every stored template with from and reseals it with to. With
// dryRun set nothing is written. step, when non-nil, is called once per
// template.
func Rotate(ctx context.Context, store TemplateStore, from, to *Templates, dryRun bool, step func()) (RotateReport, error) {
	identities, err := store.ListTemplates(ctx)
	if err != nil {
		return RotateReport{}, fmt.Errorf("list templates: %w", err)
	}

	report := RotateReport{Total: len(identities)}
	for _, ident := range identities {
		if step != nil {
			step()
		}
		emb, err := from.Open(ident.Template)
		if err != nil {
			slog.Warn("skip unreadable template", "digital_id", ident.DigitalID, "error", err)
			report.Corrupt = append(report.Corrupt, ident.DigitalID)
			continue
		}
		sealed, err := to.Seal(emb)
		if err != nil {
			return report, fmt.Errorf("reseal %s: %w", ident.DigitalID, err)
		}
		if !dryRun {
			if err := store.UpdateTemplate(ctx, ident.ID, sealed); err != nil {
				return report, fmt.Errorf("update template %s: %w", ident.DigitalID, err)
			}
		}
		report.Resealed++
	}
	return report, nil
}
