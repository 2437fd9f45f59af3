package report

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
)

// VulnerabilityTypes builds the static-analysis breakdown: every static
// finding grouped by vulnerability type, most frequent first.
func (e *Engine) VulnerabilityTypes(ctx context.Context) (*schemas.ChartPayload, error) {
	stages := []schemas.Stage{
		schemas.Group(
			bson.D{{Key: "type", Value: "$vtype"}},
			bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}},
		),
		schemas.Sort("count", -1),
	}

	docs, err := e.store.Aggregate(ctx, e.static, stages)
	if err != nil {
		return nil, err
	}

	rows := categoryRows(docs)
	e.log.Debug("vulnerability type report built", zap.Int("categories", len(rows)))
	return barChart(
		"Static Analysis Report: Issues by Vulnerability Type",
		"Number of Issues",
		[]schemas.ValueField{{ID: "type", Label: "Vulnerability Types"}},
		rows, len(rows),
	), nil
}
