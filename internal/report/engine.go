// Package report maps report requests to the aggregation flows behind them
// and shapes the results into renderer payloads. The engine performs no
// aggregation itself; it delegates to the pipeline builder, the store
// adapter and the trend aggregator.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/config"
	"github.com/vigilsec/triage-console/internal/observability"
	"github.com/vigilsec/triage-console/internal/pipeline"
	"github.com/vigilsec/triage-console/internal/trend"
)

// Report kind tokens the dispatcher routes.
const (
	KindCWE          = "cwe"
	KindVulnType     = "vulnType"
	KindIssuesByDate = "issuesByDate"
	KindIssuesOnDate = "issuesOnDate"
)

// Request is the framework-agnostic report request surface. Kind selects
// the flow; the remaining fields are optional and only consulted by the
// flows that need them.
type Request struct {
	Kind string

	// CWE turns the cwe report into a drilldown for that category; empty
	// means the all-CWEs summary. Drilldown selects the breakdown axis,
	// "valid" or "false_positive".
	CWE       string
	Drilldown string

	// Day selects the single-day drilldown target.
	Day *time.Time

	// MinDate and MaxDate bound the trend window, min inclusive and max
	// exclusive. Nil bounds fall back to the configured defaults.
	MinDate *time.Time
	MaxDate *time.Time
}

// Engine runs reports against the two finding collections.
type Engine struct {
	store   schemas.Store
	builder *pipeline.Builder
	trend   *trend.Aggregator

	static  string
	dynamic string

	log      *zap.Logger
	security *zap.Logger
	audit    *zap.Logger
}

// New wires a report engine to its collaborators.
func New(s schemas.Store, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		store:    s,
		builder:  pipeline.NewBuilder(logger),
		trend:    trend.New(s, cfg, logger),
		static:   cfg.Database.StaticCollection,
		dynamic:  cfg.Database.DynamicCollection,
		log:      logger.Named("report"),
		security: observability.Security(logger),
		audit:    observability.Audit(logger),
	}
}

// Index lists every report the dispatcher can run.
func (e *Engine) Index() schemas.ReportIndex {
	return schemas.ReportIndex{Reports: []schemas.ReportInfo{
		{Kind: KindCWE, Title: "Issues by CWE"},
		{Kind: KindVulnType, Title: "Issues by Vulnerability Type"},
		{Kind: KindIssuesByDate, Title: "Issues by Date"},
		{Kind: KindIssuesOnDate, Title: "Issues on a Single Day"},
	}}
}

// Dispatch routes a request to its report flow. A missing or unrecognized
// kind is a soft fallback to the report index, audit-logged but never an
// error; a kind failing the identifier allowlist is rejected outright as
// untrusted input.
func (e *Engine) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	log := e.log.With(zap.String("request_id", uuid.NewString()))

	if req.Kind != "" && !pipeline.ValidIdentifier(req.Kind) {
		e.security.Warn("malformed report kind rejected", zap.String("report_kind", req.Kind))
		return nil, &schemas.IdentifierError{Field: "report kind", Value: req.Kind}
	}

	switch req.Kind {
	case KindCWE:
		if req.CWE != "" {
			return e.CWEDrilldown(ctx, req.CWE, req.Drilldown)
		}
		return e.CWESummary(ctx)
	case KindVulnType:
		return e.VulnerabilityTypes(ctx)
	case KindIssuesByDate:
		return e.IssuesByDate(ctx, req.MinDate, req.MaxDate)
	case KindIssuesOnDate:
		if req.Day == nil {
			e.audit.Warn("single-day report requested without a day, returning index",
				zap.String("report_kind", req.Kind))
			return e.Index(), nil
		}
		return e.IssuesOnDate(ctx, *req.Day)
	default:
		e.audit.Warn("unrecognized report kind, returning index",
			zap.String("report_kind", req.Kind))
		log.Debug("report index served")
		return e.Index(), nil
	}
}
