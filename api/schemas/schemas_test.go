package schemas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClosedEnums(t *testing.T) {
	assert.True(t, ValidConfidence("Vulnerability"))
	assert.True(t, ValidConfidence("Type 1"))
	assert.True(t, ValidConfidence("Type 2"))
	assert.False(t, ValidConfidence("type 1"))
	assert.False(t, ValidConfidence(""))

	assert.True(t, ValidSeverity("High"))
	assert.True(t, ValidSeverity("Informational"))
	assert.False(t, ValidSeverity("Critical"))
	assert.False(t, ValidSeverity("high"))
}

func TestStageValidation(t *testing.T) {
	assert.True(t, Match(bson.D{}).Valid())
	assert.True(t, Sort("count", -1).Valid())
	assert.False(t, Stage{Tag: "$merge", Body: bson.D{}}.Valid())
	assert.False(t, Stage{Tag: TagMatch}.Valid(), "a stage without a body is malformed")
}

func TestStageDocumentWrapsTag(t *testing.T) {
	doc := Sort("_id.file", 1).Document()
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.file", Value: 1}}}}, doc)
}

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&FilterValueError{Field: "severity", Value: "Critical"}, ErrInvalidFilterValue},
		{&IdentifierError{Field: "application", Value: "x;y"}, ErrInvalidIdentifier},
		{&PipelineStageError{Tag: "$merge"}, ErrInvalidPipelineStage},
		{&SourceTableError{Collection: "OTHER"}, ErrWrongSourceTable},
		{&QueryError{Collection: "ISSUES_LIST", Op: "count", Err: errors.New("boom")}, ErrUpstreamQueryFailure},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel)
		assert.NotEmpty(t, tc.err.Error())
	}
}

func TestCurrentStatusDistinguishesAbsentFromEmpty(t *testing.T) {
	var li LogicalIssue
	_, ok := li.CurrentStatus()
	assert.False(t, ok)

	li.ReviewStatuses = []ReviewStatus{""}
	status, ok := li.CurrentStatus()
	assert.True(t, ok, "an explicit empty entry is still a review entry")
	assert.Equal(t, ReviewStatus(""), status)

	li.ReviewStatuses = []ReviewStatus{ReviewValid, ReviewFalsePositive}
	status, ok = li.CurrentStatus()
	assert.True(t, ok)
	assert.Equal(t, ReviewValid, status, "position zero is authoritative")
}

func TestChartPixelsScalesWithRows(t *testing.T) {
	assert.Equal(t, 100, ChartPixels(0))
	assert.Equal(t, 150, ChartPixels(1))
	assert.Equal(t, 600, ChartPixels(10))
}

func TestFindingCreatedAtComesFromIdentifier(t *testing.T) {
	ts := time.Date(2014, 1, 14, 8, 0, 0, 0, time.UTC)
	f := Finding{ID: primitive.NewObjectIDFromTimestamp(ts), DateScanned: ts.AddDate(0, 0, 3)}
	assert.True(t, f.CreatedAt().Equal(ts), "creation time is the identifier's embedded timestamp, not the scan date")
}
