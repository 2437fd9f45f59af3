package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/trend"
)

// IssuesByDate runs the two day-bucket jobs and shapes the merged series
// into the trend chart payload, one point per active calendar day.
func (e *Engine) IssuesByDate(ctx context.Context, minDate, maxDate *time.Time) (*schemas.ChartPayload, error) {
	var w trend.Window
	if minDate != nil {
		w.Min = *minDate
	}
	if maxDate != nil {
		w.Max = *maxDate
	}

	series, err := e.trend.IssuesByDate(ctx, w)
	if err != nil {
		return nil, err
	}

	points := make([]schemas.TrendPoint, 0, len(series))
	for _, day := range series {
		points = append(points, schemas.TrendPoint{
			CategoryName:      day.Day,
			UnreviewedStatic:  day.UnreviewedStatic,
			UnreviewedDynamic: day.UnreviewedDynamic,
			ReviewedStatic:    day.ReviewedStatic,
			ReviewedDynamic:   day.ReviewedDynamic,
		})
	}

	e.log.Debug("trend report built", zap.Int("days", len(points)))
	return barChart(
		schemas.TrendReportTitle,
		schemas.TrendReportYTitle,
		[]schemas.ValueField{
			{ID: "unreviewedStatic", Label: "New Static Findings"},
			{ID: "unreviewedDynamic", Label: "New Dynamic Findings"},
			{ID: "reviewedStatic", Label: "Reviewed Static Findings"},
			{ID: "reviewedDynamic", Label: "Reviewed Dynamic Findings"},
		},
		points, len(points),
	), nil
}

// IssuesOnDate builds the single-day drilldown pie: the four activity
// counters for one calendar day.
func (e *Engine) IssuesOnDate(ctx context.Context, day time.Time) (*schemas.PiePayload, error) {
	counts, err := e.trend.IssuesOnDate(ctx, day)
	if err != nil {
		return nil, err
	}

	return &schemas.PiePayload{
		Data: []schemas.PieSlice{
			{Title: "New Static Findings", Value: counts.NewStatic},
			{Title: "New Dynamic Findings", Value: counts.NewDynamic},
			{Title: "Reviewed Static Findings", Value: counts.ReviewedStatic},
			{Title: "Reviewed Dynamic Findings", Value: counts.ReviewedDynamic},
		},
		Title:      "Issues for " + day.UTC().Format("2006-01-02"),
		ValueField: "value",
		TitleField: "title",
	}, nil
}
