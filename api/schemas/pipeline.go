package schemas

import (
	"go.mongodb.org/mongo-driver/bson"
)

// -- Pipeline Stages --

// Stage tags understood by the aggregation engine. The store adapter rejects
// any stage whose tag falls outside this set before submitting the pipeline.
const (
	TagMatch   = "$match"
	TagGroup   = "$group"
	TagSort    = "$sort"
	TagLimit   = "$limit"
	TagSkip    = "$skip"
	TagUnwind  = "$unwind"
	TagProject = "$project"
)

// AllowedStageTags is the fixed set of legal pipeline operations.
var AllowedStageTags = map[string]bool{
	TagMatch:   true,
	TagGroup:   true,
	TagSort:    true,
	TagLimit:   true,
	TagSkip:    true,
	TagUnwind:  true,
	TagProject: true,
}

// Stage is one tagged step of an aggregation pipeline. Pipelines are built as
// explicit ordered slices of these records and passed verbatim to the store
// adapter; the execution engine evaluates them left to right, each stage
// narrowing the prior result set.
type Stage struct {
	Tag  string `json:"tag"`
	Body bson.D `json:"body"`
}

// Valid reports whether the stage carries a legal tag and a body.
func (s Stage) Valid() bool {
	return AllowedStageTags[s.Tag] && s.Body != nil
}

// Match builds a filter stage from a predicate document.
func Match(predicate bson.D) Stage {
	return Stage{Tag: TagMatch, Body: predicate}
}

// Group builds a grouping stage from a key sub-document and a set of
// accumulator expressions.
func Group(key bson.D, accumulators bson.D) Stage {
	body := bson.D{{Key: "_id", Value: key}}
	body = append(body, accumulators...)
	return Stage{Tag: TagGroup, Body: body}
}

// Sort builds a sort stage. Direction is 1 for ascending, -1 for descending.
func Sort(field string, direction int) Stage {
	return Stage{Tag: TagSort, Body: bson.D{{Key: field, Value: direction}}}
}

// Document renders the stage as the single-key document the aggregation
// engine consumes.
func (s Stage) Document() bson.D {
	return bson.D{{Key: s.Tag, Value: s.Body}}
}
