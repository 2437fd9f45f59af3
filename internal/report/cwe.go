package report

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
)

// cweNumber accepts the numeric CWE identifiers stored on findings.
var cweNumber = regexp.MustCompile(`^[0-9]+$`)

// CWESummary builds the all-CWEs report: every reviewed finding carrying a
// CWE number, grouped by (CWE, disposition) and shaped into one row per
// CWE with valid, false-positive and total counts.
func (e *Engine) CWESummary(ctx context.Context) (*schemas.ChartPayload, error) {
	stages := []schemas.Stage{
		schemas.Match(bson.D{
			{Key: "CWE", Value: bson.D{{Key: "$gt", Value: "0"}}},
			{Key: "review.status", Value: bson.D{{Key: "$in", Value: bson.A{
				string(schemas.ReviewValid), string(schemas.ReviewFalsePositive),
			}}}},
		}),
		schemas.Group(
			bson.D{
				{Key: "CWE", Value: "$CWE"},
				{Key: "type", Value: "$review.status"},
			},
			bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}},
		),
		schemas.Sort("count", -1),
	}

	docs, err := e.store.Aggregate(ctx, e.dynamic, stages)
	if err != nil {
		return nil, err
	}

	rows := make([]schemas.CWECategory, 0, len(docs))
	index := make(map[string]int)
	for _, doc := range docs {
		id, _ := doc["_id"].(bson.M)
		category := fmt.Sprintf("CWE-%v", id["CWE"])
		count := asInt(doc["count"])

		i, seen := index[category]
		if !seen {
			i = len(rows)
			index[category] = i
			rows = append(rows, schemas.CWECategory{CategoryName: category})
		}
		switch fmt.Sprint(id["type"]) {
		case string(schemas.ReviewValid):
			rows[i].Valid += count
		case string(schemas.ReviewFalsePositive):
			rows[i].FalsePositive += count
		}
		rows[i].Total += count
	}

	e.log.Debug("cwe summary built", zap.Int("categories", len(rows)))
	return barChart(
		"CWE Report: Issues by CWE",
		"Number of Issues",
		[]schemas.ValueField{
			{ID: "valid", Label: "Valid Issues"},
			{ID: "fp", Label: "False Positives"},
			{ID: "total", Label: "Total Findings"},
		},
		rows, len(rows),
	), nil
}

// CWEDrilldown breaks one CWE category down by ticket number (valid
// findings) or false-positive reason. The CWE value and the discriminator
// are both caller input: the CWE must be numeric, and the discriminator
// must name one of the two dispositions.
func (e *Engine) CWEDrilldown(ctx context.Context, cwe, drilldown string) (*schemas.ChartPayload, error) {
	if !cweNumber.MatchString(cwe) {
		e.security.Warn("malformed cwe number rejected", zap.String("cwe", cwe))
		return nil, &schemas.IdentifierError{Field: "cwe", Value: cwe}
	}

	var groupField, label string
	switch drilldown {
	case string(schemas.ReviewValid):
		groupField = "$review.ticket_number"
		label = "Ticket Numbers"
	case string(schemas.ReviewFalsePositive):
		groupField = "$review.false_positive_reason"
		label = "False Positive Reasons"
	default:
		e.security.Warn("invalid cwe drilldown discriminator", zap.String("drilldown", drilldown))
		return nil, &schemas.FilterValueError{Field: "drilldown", Value: drilldown}
	}

	stages := []schemas.Stage{
		schemas.Match(bson.D{
			{Key: "CWE", Value: cwe},
			{Key: "review.status", Value: drilldown},
		}),
		schemas.Group(
			bson.D{{Key: "type", Value: groupField}},
			bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}},
		),
		schemas.Sort("count", -1),
	}

	docs, err := e.store.Aggregate(ctx, e.dynamic, stages)
	if err != nil {
		return nil, err
	}

	rows := categoryRows(docs)
	return barChart(
		fmt.Sprintf("CWE Report: %s for CWE-%s", label, cwe),
		"Number of Issues",
		[]schemas.ValueField{{ID: "type", Label: label}},
		rows, len(rows),
	), nil
}
