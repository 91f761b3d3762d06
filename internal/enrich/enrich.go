package enrich

import (
	"context"

	"marketrag/internal/domain"
)

// Enricher augments a finished AnswerResult with optional analysis fields.
// Enrichers run after retrieval and generation and never influence either;
// a failed enricher leaves its fields unset rather than failing the
// request.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, result *domain.AnswerResult) error
}

// Apply runs each enricher in order, collecting failures without aborting.
func Apply(ctx context.Context, result *domain.AnswerResult, enrichers []Enricher) []error {
	var errs []error
	for _, e := range enrichers {
		if err := e.Enrich(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
