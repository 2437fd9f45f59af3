package report

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/issues"
	"github.com/vigilsec/triage-console/internal/pipeline"
)

// ApplicationCount is one row of the per-application summary.
type ApplicationCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListIssues runs the filtered issue listing against the static collection
// and collapses the grouped results into logical issues. Filter validation
// failures abort before anything is queried.
func (e *Engine) ListIssues(ctx context.Context, f pipeline.Filters) ([]schemas.LogicalIssue, error) {
	stages, err := e.builder.Build(f)
	if err != nil {
		return nil, err
	}

	docs, err := e.store.Aggregate(ctx, e.static, stages)
	if err != nil {
		return nil, err
	}

	list, err := issues.FromGroupedAll(docs)
	if err != nil {
		return nil, err
	}

	e.log.Debug("issue listing built",
		zap.String("application", f.Application),
		zap.String("project", f.Project),
		zap.Int("issues", len(list)))
	return list, nil
}

// ApplicationSummary counts unreviewed static findings per application,
// sorted by application name, with a synthetic leading "All" row carrying
// the total across every application.
func (e *Engine) ApplicationSummary(ctx context.Context) ([]ApplicationCount, error) {
	stages := []schemas.Stage{
		schemas.Match(bson.D{{Key: "review.status", Value: bson.D{{Key: "$exists", Value: false}}}}),
		schemas.Group(
			bson.D{{Key: "app", Value: "$application_name"}},
			bson.D{{Key: "sum", Value: bson.D{{Key: "$sum", Value: 1}}}},
		),
		schemas.Sort("_id.app", 1),
	}

	docs, err := e.store.Aggregate(ctx, e.static, stages)
	if err != nil {
		return nil, err
	}

	rows := make([]ApplicationCount, 0, len(docs)+1)
	total := 0
	for _, doc := range docs {
		id, _ := doc["_id"].(bson.M)
		count := asInt(doc["sum"])
		total += count
		rows = append(rows, ApplicationCount{Name: fmt.Sprint(id["app"]), Count: count})
	}

	return append([]ApplicationCount{{Name: pipeline.AllApplications, Count: total}}, rows...), nil
}

// ProjectsForApplication lists the distinct project names scanned under
// one application, with the "All" sentinel first. The sentinel as input
// means every application.
func (e *Engine) ProjectsForApplication(ctx context.Context, application string) ([]string, error) {
	if !pipeline.ValidIdentifier(application) {
		e.security.Warn("malformed application name rejected", zap.String("application", application))
		return nil, &schemas.IdentifierError{Field: "application", Value: application}
	}

	stages := make([]schemas.Stage, 0, 3)
	if application != pipeline.AllApplications {
		stages = append(stages, schemas.Match(bson.D{{Key: "application_name", Value: application}}))
	}
	stages = append(stages,
		schemas.Group(bson.D{{Key: "project", Value: "$project_name"}}, bson.D{}),
		schemas.Sort("_id.project", 1),
	)

	docs, err := e.store.Aggregate(ctx, e.static, stages)
	if err != nil {
		return nil, err
	}

	projects := make([]string, 0, len(docs)+1)
	projects = append(projects, pipeline.AllApplications)
	for _, doc := range docs {
		id, _ := doc["_id"].(bson.M)
		projects = append(projects, fmt.Sprint(id["project"]))
	}
	return projects, nil
}

// FindingDetail fetches one static finding with its taint trace and code
// detail. The identifier is format-validated by the store before any query.
func (e *Engine) FindingDetail(ctx context.Context, hexID string) (*schemas.Finding, error) {
	return e.store.FindByID(ctx, e.static, hexID)
}
