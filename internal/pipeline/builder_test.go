package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vigilsec/triage-console/api/schemas"
)

func validFilters() Filters {
	return Filters{
		Application: "learn",
		Project:     "mainline",
		Confidence:  []string{"Vulnerability", "Type 1"},
		Severity:    []string{"High", "Medium"},
	}
}

func newTestBuilder() (*Builder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return NewBuilder(zap.New(core)), logs
}

func stageTags(stages []schemas.Stage) []string {
	tags := make([]string, 0, len(stages))
	for _, s := range stages {
		tags = append(tags, s.Tag)
	}
	return tags
}

func TestBuildFullPipelineOrder(t *testing.T) {
	b, _ := newTestBuilder()

	stages, err := b.Build(validFilters())
	require.NoError(t, err)
	assert.Equal(t, []string{
		schemas.TagMatch, // application
		schemas.TagMatch, // project
		schemas.TagMatch, // confidence/severity/date
		schemas.TagGroup,
		schemas.TagMatch, // review status
		schemas.TagSort,
	}, stageTags(stages))

	assert.Equal(t, bson.D{{Key: "application_name", Value: "learn"}}, stages[0].Body)
	assert.Equal(t, bson.D{{Key: "project_name", Value: "mainline"}}, stages[1].Body)
	assert.Equal(t, bson.D{{Key: "_id.file", Value: 1}}, stages[5].Body)
}

func TestBuildOmitsAllSentinelStages(t *testing.T) {
	b, _ := newTestBuilder()

	f := validFilters()
	f.Application = AllApplications
	f.Project = AllApplications

	stages, err := b.Build(f)
	require.NoError(t, err)

	// No application or project stage at all, not a match-everything filter.
	assert.Equal(t, []string{schemas.TagMatch, schemas.TagGroup, schemas.TagMatch, schemas.TagSort}, stageTags(stages))
	for _, stage := range stages {
		for _, elem := range stage.Body {
			assert.NotEqual(t, "application_name", elem.Key)
			assert.NotEqual(t, "project_name", elem.Key)
		}
	}
}

func TestBuildDateRangeUsesIdentifierBounds(t *testing.T) {
	b, _ := newTestBuilder()

	min := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC)
	f := validFilters()
	f.MinDate = &min
	f.MaxDate = &max

	stages, err := b.Build(f)
	require.NoError(t, err)

	combined := stages[2].Body
	require.Equal(t, "_id", combined[2].Key)
	bounds, ok := combined[2].Value.(bson.D)
	require.True(t, ok)
	require.Len(t, bounds, 2)

	lower, ok := bounds[0].Value.(primitive.ObjectID)
	require.True(t, ok)
	upper, ok := bounds[1].Value.(primitive.ObjectID)
	require.True(t, ok)
	assert.Equal(t, "$gte", bounds[0].Key)
	assert.Equal(t, "$lte", bounds[1].Key)
	assert.True(t, lower.Timestamp().Equal(min))
	assert.True(t, upper.Timestamp().Equal(max))
}

func TestBuildReviewStatusVariants(t *testing.T) {
	cases := []struct {
		name   string
		status string
		want   bson.D
	}{
		{"unset means new", "", bson.D{{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: false}}}}},
		{"new", ReviewFilterNew, bson.D{{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: false}}}}},
		{"reviewed", ReviewFilterReviewed, bson.D{{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: true}}}}},
		{"all is empty", ReviewFilterAll, bson.D{}},
		{"valid", ReviewFilterValid, bson.D{{Key: "reviewStatus.0", Value: "valid"}}},
		{"false positive", ReviewFilterFalsePositive, bson.D{{Key: "reviewStatus.0", Value: "false_positive"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, logs := newTestBuilder()
			f := validFilters()
			f.ReviewStatus = tc.status

			stages, err := b.Build(f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stages[4].Body)
			assert.Zero(t, logs.Len(), "accepted values must not audit-log")
		})
	}
}

func TestBuildCoercesUnrecognizedReviewStatus(t *testing.T) {
	b, logs := newTestBuilder()

	f := validFilters()
	f.ReviewStatus = "sideways"

	stages, err := b.Build(f)
	require.NoError(t, err, "coercion is a soft fallback, not a failure")
	assert.Equal(t,
		bson.D{{Key: "reviewStatus.0", Value: bson.D{{Key: "$exists", Value: false}}}},
		stages[4].Body)

	entries := logs.FilterMessageSnippet("coerced").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].LoggerName, "audit")
	assert.Equal(t, "sideways", entries[0].ContextMap()["review_status"])
}

func TestBuildReviewMatchCarriesVulnTypeAndMethod(t *testing.T) {
	b, _ := newTestBuilder()

	f := validFilters()
	f.ReviewStatus = ReviewFilterAll
	f.VulnType = "SQL Injection"
	f.Method = "executeQuery"

	stages, err := b.Build(f)
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "_id.vtype", Value: "SQL Injection"},
		{Key: "_id.method", Value: "executeQuery"},
	}, stages[4].Body)
}

func TestBuildRejectsInvalidEnums(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Filters)
	}{
		{"invalid severity", func(f *Filters) { f.Severity = []string{"High", "Critical"} }},
		{"invalid confidence", func(f *Filters) { f.Confidence = []string{"Type 3"} }},
		{"missing severity", func(f *Filters) { f.Severity = nil }},
		{"missing confidence", func(f *Filters) { f.Confidence = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newTestBuilder()
			f := validFilters()
			tc.mutate(&f)

			stages, err := b.Build(f)
			assert.Nil(t, stages)
			assert.ErrorIs(t, err, schemas.ErrInvalidFilterValue)
		})
	}
}

func TestBuildRejectsAllowlistViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Filters)
	}{
		{"application", func(f *Filters) { f.Application = "learn<script>" }},
		{"project", func(f *Filters) { f.Project = "main;drop" }},
		{"vulnerability type", func(f *Filters) { f.VulnType = "XSS$where" }},
		{"method", func(f *Filters) { f.Method = "do()" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, logs := newTestBuilder()
			f := validFilters()
			tc.mutate(&f)

			stages, err := b.Build(f)
			assert.Nil(t, stages)
			assert.ErrorIs(t, err, schemas.ErrInvalidIdentifier)

			entries := logs.FilterMessageSnippet("allowlist").All()
			require.Len(t, entries, 1, "allowlist rejections are security events")
			assert.Contains(t, entries[0].LoggerName, "security")
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("Learn Mainline 2.0"))
	assert.True(t, ValidIdentifier("b2"))
	assert.True(t, ValidIdentifier("why-not_this.one!?"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("a,b"))
	assert.False(t, ValidIdentifier("x\ny"))
	assert.False(t, ValidIdentifier("$(rm -rf)"))
}

// matchesFinding evaluates the equality, $in and identifier-bound
// predicates the builder emits for raw findings, so monotonicity can be
// checked against the stage list itself.
func matchesFinding(pred bson.D, f schemas.Finding) bool {
	fields := map[string]interface{}{
		"application_name": f.ApplicationName,
		"project_name":     f.ProjectName,
		"conf":             f.Confidence,
		"sev":              f.Severity,
		"_id":              f.ID,
	}
	for _, cond := range pred {
		val := fields[cond.Key]
		switch want := cond.Value.(type) {
		case string:
			if val != want {
				return false
			}
		case bson.D:
			for _, op := range want {
				switch op.Key {
				case "$in":
					found := false
					for _, allowed := range op.Value.([]string) {
						if val == allowed {
							found = true
						}
					}
					if !found {
						return false
					}
				case "$gte":
					if f.ID.Hex() < op.Value.(primitive.ObjectID).Hex() {
						return false
					}
				case "$lte":
					if f.ID.Hex() > op.Value.(primitive.ObjectID).Hex() {
						return false
					}
				}
			}
		}
	}
	return true
}

func preGroupMatchCount(stages []schemas.Stage, rows []schemas.Finding) int {
	n := 0
	for _, row := range rows {
		keep := true
		for _, stage := range stages {
			if stage.Tag == schemas.TagGroup {
				break
			}
			if stage.Tag == schemas.TagMatch && !matchesFinding(stage.Body, row) {
				keep = false
				break
			}
		}
		if keep {
			n++
		}
	}
	return n
}

func TestAddingFiltersNeverWidensResults(t *testing.T) {
	b, _ := newTestBuilder()

	apps := []string{"learn", "b2"}
	projects := []string{"mainline", "release"}
	confs := []string{"Vulnerability", "Type 1", "Type 2"}
	sevs := []string{"High", "Medium", "Low"}

	var rows []schemas.Finding
	for i := 0; i < 80; i++ {
		rows = append(rows, schemas.Finding{
			ID:              primitive.NewObjectIDFromTimestamp(time.Date(2014, 1, 1+i%28, 0, 0, 0, 0, time.UTC)),
			ApplicationName: apps[i%2],
			ProjectName:     projects[i%2],
			Confidence:      confs[i%3],
			Severity:        sevs[i%3],
		})
	}

	base := Filters{
		Application: AllApplications,
		Project:     AllApplications,
		Confidence:  confs,
		Severity:    sevs,
	}
	baseStages, err := b.Build(base)
	require.NoError(t, err)
	baseCount := preGroupMatchCount(baseStages, rows)
	assert.Equal(t, len(rows), baseCount)

	narrowings := []Filters{
		{Application: "learn", Project: AllApplications, Confidence: confs, Severity: sevs},
		{Application: AllApplications, Project: "mainline", Confidence: confs, Severity: sevs},
		{Application: AllApplications, Project: AllApplications, Confidence: confs[:1], Severity: sevs},
		{Application: AllApplications, Project: AllApplications, Confidence: confs, Severity: sevs[:2]},
		{Application: "b2", Project: "release", Confidence: confs[:2], Severity: sevs[:1]},
	}
	for _, f := range narrowings {
		stages, err := b.Build(f)
		require.NoError(t, err)
		count := preGroupMatchCount(stages, rows)
		assert.LessOrEqual(t, count, baseCount)
	}

	// Narrowing the window can only shrink further.
	min := time.Date(2014, 1, 10, 0, 0, 0, 0, time.UTC)
	windowed := base
	windowed.MinDate = &min
	windowedStages, err := b.Build(windowed)
	require.NoError(t, err)
	assert.LessOrEqual(t, preGroupMatchCount(windowedStages, rows), baseCount)
}
