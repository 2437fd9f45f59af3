// Package pipeline assembles ordered aggregation pipelines from optional,
// independently-validated report filters. The builder produces an explicit
// stage list; it never touches the datastore itself.
package pipeline

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/issues"
	"github.com/vigilsec/triage-console/internal/observability"
)

// Builder turns a validated filter set into the ordered stage list the
// store adapter executes. Stage order matters: the engine evaluates left to
// right, each stage narrowing the prior result set.
type Builder struct {
	log      *zap.Logger
	security *zap.Logger
	audit    *zap.Logger
}

// NewBuilder wires a builder to its log channels.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{
		log:      logger.Named("pipeline"),
		security: observability.Security(logger),
		audit:    observability.Audit(logger),
	}
}

// Build validates the filters and assembles the pipeline:
//
//	[app match?] [project match?] [conf/sev/date match] [group] [review match] [sort]
//
// The application and project stages are omitted entirely when their value
// is the "All" sentinel. Any validation failure aborts before assembly; no
// partial pipeline is ever returned.
func (b *Builder) Build(f Filters) ([]schemas.Stage, error) {
	if err := f.Validate(); err != nil {
		b.logRejection(f, err)
		return nil, err
	}

	stages := make([]schemas.Stage, 0, 6)

	if f.Application != AllApplications {
		stages = append(stages, schemas.Match(bson.D{{Key: "application_name", Value: f.Application}}))
	}
	if f.Project != AllApplications {
		stages = append(stages, schemas.Match(bson.D{{Key: "project_name", Value: f.Project}}))
	}

	stages = append(stages, schemas.Match(b.combinedMatch(f)))
	stages = append(stages, issues.GroupStage())
	stages = append(stages, schemas.Match(b.reviewMatch(f)))
	stages = append(stages, schemas.Sort("_id.file", 1))

	return stages, nil
}

// combinedMatch narrows by confidence, severity and the optional creation
// window. Date bounds are expressed as ObjectID boundaries, not raw date
// comparisons, because ordering relies on the identifier's embedded
// timestamp.
func (b *Builder) combinedMatch(f Filters) bson.D {
	match := bson.D{
		{Key: "conf", Value: bson.D{{Key: "$in", Value: f.Confidence}}},
		{Key: "sev", Value: bson.D{{Key: "$in", Value: f.Severity}}},
	}

	var bounds bson.D
	if f.MinDate != nil {
		bounds = append(bounds, bson.E{Key: "$gte", Value: primitive.NewObjectIDFromTimestamp(*f.MinDate)})
	}
	if f.MaxDate != nil {
		bounds = append(bounds, bson.E{Key: "$lte", Value: primitive.NewObjectIDFromTimestamp(*f.MaxDate)})
	}
	if bounds != nil {
		match = append(match, bson.E{Key: "_id", Value: bounds})
	}
	return match
}

// reviewMatch filters on the grouped result's first review-status entry: a
// logical issue's disposition is its single authoritative review entry, not
// a majority vote across duplicates. Unrecognized values coerce to "new"
// with an audit entry; this permissive fallback is deliberate and distinct
// from the hard-fail filters above.
func (b *Builder) reviewMatch(f Filters) bson.D {
	match := bson.D{}

	switch f.ReviewStatus {
	case "", ReviewFilterNew:
		match = append(match, bson.E{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: false}}})
	case ReviewFilterReviewed:
		match = append(match, bson.E{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: true}}})
	case ReviewFilterAll:
		// No disposition constraint.
	case ReviewFilterValid, ReviewFilterFalsePositive:
		match = append(match, bson.E{Key: "reviewStatus.0", Value: f.ReviewStatus})
	default:
		b.audit.Warn("review status filter set to unrecognized value, coerced to new",
			zap.String("review_status", f.ReviewStatus))
		match = append(match, bson.E{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: false}}})
	}

	if f.VulnType != "" {
		match = append(match, bson.E{Key: "_id.vtype", Value: f.VulnType})
	}
	if f.Method != "" {
		match = append(match, bson.E{Key: "_id.method", Value: f.Method})
	}
	return match
}

// logRejection routes validation failures to the right channel: allowlist
// failures on free-text fields may be attacker controlled and go to the
// security log; enum failures are plain validation events.
func (b *Builder) logRejection(f Filters, err error) {
	var idErr *schemas.IdentifierError
	if errors.As(err, &idErr) {
		b.security.Warn("report filter rejected by allowlist",
			zap.String("field", idErr.Field),
			zap.String("value", idErr.Value),
			zap.String("application", f.Application))
		return
	}
	b.log.Warn("report filter failed validation", zap.Error(err))
}
