package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// TimingTransformer implements Transformer: it parses a point series message
// and computes a timing document for every registered event on the series
// variable. The ingest service publishes registry variables, so wind speed
// arrives already derived from its components.
type TimingTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a TimingTransformer.
func NewTransformer(logger *slog.Logger) *TimingTransformer {
	return &TimingTransformer{logger: logger}
}

func (t *TimingTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	pt, err := domain.ParseRawSeries(raw)
	if err != nil {
		return nil, err
	}

	now := domain.Now()

	var outs []domain.OutputEvent
	for _, event := range domain.Events() {
		if event.Variable != pt.Series.Variable {
			continue
		}

		timing, err := domain.ComputeTiming(pt.Series, event.Condition(), now)
		if err != nil {
			return nil, fmt.Errorf("compute timing for %s: %w", event.ID, err)
		}

		doc := domain.NewTimingDocument(event, pt, timing)
		out, err := serializeDocument(doc)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}

	if len(outs) == 0 {
		t.logger.Debug("no events registered for variable, skipping",
			"variable", pt.Series.Variable, "lat", pt.Geo.Lat, "lon", pt.Geo.Lon)
	}

	return outs, nil
}

// serializeDocument marshals a timing document into an output event keyed by
// the document ID, so sink compaction keeps one document per
// (event, point, cycle).
func serializeDocument(doc domain.TimingDocument) (domain.OutputEvent, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize timing document: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(doc.ID),
		Value: data,
		Headers: map[string]string{
			"event_id":    doc.EventID,
			"computed_at": doc.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}
