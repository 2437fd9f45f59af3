package schemas

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// -- Day-Bucket Job Contract --

// ReviewedOnDay is one reviewed-count contribution keyed by the calendar day
// the review happened on.
type ReviewedOnDay struct {
	Day string `bson:"date" json:"date"`
	Num int    `bson:"num" json:"num"`
}

// DayValue is the value accumulated per calendar day by a day-bucket job.
// New counts findings created on the key day; Reviewed carries zero or more
// review contributions, each keyed by its own review day.
type DayValue struct {
	New      int             `bson:"newResults" json:"newResults"`
	Reviewed []ReviewedOnDay `bson:"reviewed" json:"reviewed"`
}

// DayBucket is one reduced key/value pair of a day-bucket job. Key is the
// creation day in year-month-day form without zero padding.
type DayBucket struct {
	Key   string   `bson:"_id" json:"_id"`
	Value DayValue `bson:"value" json:"value"`
}

// DayBucketResult is the full inline output of one per-collection
// day-bucket job, tagged with the collection it ran against.
type DayBucketResult struct {
	Collection string
	Buckets    []DayBucket
}

// -- Store Interface --

// Store is the read-side query surface of the finding datastore. The
// reporting core consumes it; implementations own connection handling. All
// methods are safe for concurrent use.
type Store interface {
	// Aggregate runs an ordered stage pipeline against a collection and
	// returns the raw result documents. Every stage tag is validated
	// against the fixed allowed set before submission; a stage outside it
	// fails with ErrInvalidPipelineStage and nothing executes.
	Aggregate(ctx context.Context, collection string, stages []Stage) ([]bson.M, error)

	// DayBuckets runs the day-bucketing map-reduce job over a collection,
	// returning inline results tagged with the collection name.
	DayBuckets(ctx context.Context, collection string) (DayBucketResult, error)

	// Count returns the number of documents matching a filter.
	Count(ctx context.Context, collection string, filter bson.D) (int64, error)

	// FindByID fetches a single finding by its hex ObjectID. The id is
	// format-validated before any datastore interaction.
	FindByID(ctx context.Context, collection, hexID string) (*Finding, error)
}
