package enrich

import (
	"context"
	"fmt"

	"github.com/agenthands/geoenrich/internal/record"
	"go.uber.org/zap"
)

// Stats counts what happened to the records of one collection.
type Stats struct {
	Total      int
	Resolved   int
	NoLocation int
	Failed     int
	Skipped    int // blank or missing title
}

func (s Stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("resolved", s.Resolved),
		zap.Int("no_location", s.NoLocation),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
	}
}

type Pipeline struct {
	Locator *Locator
	logger  *zap.Logger
}

func NewPipeline(locator *Locator, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		Locator: locator,
		logger:  logger,
	}
}

// Enrich sets the location field on every record of col that has a
// non-blank title, one record at a time and in order. Records are replaced
// in col. On cancellation it returns the context error; records already
// handled keep their location and the one in flight is left unchanged.
func (p *Pipeline) Enrich(ctx context.Context, col record.Collection, titleField string) (Stats, error) {
	stats := Stats{Total: len(col)}

	for i, rec := range col {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		title := rec.Title(titleField)
		if title == "" {
			p.logger.Info("skipping record without title", zap.Int("index", i), zap.String("field", titleField))
			stats.Skipped++
			continue
		}

		p.logger.Info("processing record", zap.Int("index", i), zap.String("title", title))
		result := p.Locator.Locate(ctx, title)
		if err := ctx.Err(); err != nil {
			// An interrupted lookup is left unset, like the records after it.
			return stats, err
		}
		switch result.Status {
		case StatusResolved:
			stats.Resolved++
		case StatusNoLocation:
			stats.NoLocation++
		case StatusFailed:
			stats.Failed++
		}

		updated, err := rec.WithLocation(result.Location())
		if err != nil {
			return stats, fmt.Errorf("failed to set location on record %d: %w", i, err)
		}
		col[i] = updated
		p.logger.Info("extracted location",
			zap.Int("index", i),
			zap.String("location", result.Location()),
			zap.Stringer("status", result.Status),
		)
	}

	return stats, nil
}
