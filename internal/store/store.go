// Package store is the read-side adapter between the reporting core and the
// document datastore holding the two finding collections.
package store

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
)

// Cursor abstracts the driver cursor so the store can be mocked in tests.
// *mongo.Cursor satisfies it directly.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// SingleResult abstracts a single-document result.
type SingleResult interface {
	Decode(val interface{}) error
}

// Collection is the slice of the driver collection API this core consumes.
type Collection interface {
	Aggregate(ctx context.Context, pipeline interface{}) (Cursor, error)
	Find(ctx context.Context, filter interface{}) (Cursor, error)
	FindOne(ctx context.Context, filter interface{}) SingleResult
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

// Database hands out collections by name.
type Database interface {
	Collection(name string) Collection
}

// Store provides the document-store implementation of schemas.Store. It is
// read-only: review submission and finding ingestion belong to separate
// collaborators.
type Store struct {
	db  Database
	log *zap.Logger
}

// New creates a store over an open database handle.
func New(db Database, logger *zap.Logger) *Store {
	return &Store{
		db:  db,
		log: logger.Named("store"),
	}
}

// hexObjectID matches a well-formed 24-character hex identifier.
var hexObjectID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Aggregate validates every stage tag against the fixed allowed set, then
// executes the pipeline. A stage outside the set is a programming defect:
// the whole request fails before anything is submitted.
func (s *Store) Aggregate(ctx context.Context, collection string, stages []schemas.Stage) ([]bson.M, error) {
	pipeline := make([]bson.D, 0, len(stages))
	for _, stage := range stages {
		if !schemas.AllowedStageTags[stage.Tag] {
			return nil, &schemas.PipelineStageError{Tag: stage.Tag}
		}
		pipeline = append(pipeline, stage.Document())
	}

	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &schemas.QueryError{Collection: collection, Op: "aggregate", Err: err}
	}
	defer cursor.Close(ctx)

	var results []bson.M
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, &schemas.QueryError{Collection: collection, Op: "aggregate decode", Err: err}
		}
		results = append(results, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, &schemas.QueryError{Collection: collection, Op: "aggregate iterate", Err: err}
	}

	s.log.Debug("aggregation complete",
		zap.String("collection", collection),
		zap.Int("stages", len(stages)),
		zap.Int("rows", len(results)))
	return results, nil
}

// Count returns the number of documents matching the filter.
func (s *Store) Count(ctx context.Context, collection string, filter bson.D) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, &schemas.QueryError{Collection: collection, Op: "count", Err: err}
	}
	return n, nil
}

// FindByID fetches one finding by its hex identifier. The format check runs
// before any datastore interaction; a malformed id is rejected as untrusted
// input, not passed through.
func (s *Store) FindByID(ctx context.Context, collection, hexID string) (*schemas.Finding, error) {
	if !hexObjectID.MatchString(hexID) {
		return nil, &schemas.IdentifierError{Field: "finding id", Value: hexID}
	}
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, &schemas.IdentifierError{Field: "finding id", Value: hexID}
	}

	var finding schemas.Finding
	res := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err := res.Decode(&finding); err != nil {
		return nil, &schemas.QueryError{Collection: collection, Op: "find one", Err: err}
	}
	return &finding, nil
}

// DayBuckets runs the day-bucketing job over a full collection: every row
// contributes one new-finding count keyed by its creation day and, when
// reviewed, one reviewed count keyed by the review day. Reduction happens
// client-side with the associative reducer from dayjob.go; the result is
// tagged with the collection name so the trend aggregator can detect a
// response from the wrong source.
func (s *Store) DayBuckets(ctx context.Context, collection string) (schemas.DayBucketResult, error) {
	result := schemas.DayBucketResult{Collection: collection}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return result, &schemas.QueryError{Collection: collection, Op: "day buckets", Err: err}
	}
	defer cursor.Close(ctx)

	acc := make(map[string]schemas.DayValue)
	for cursor.Next(ctx) {
		var finding schemas.Finding
		if err := cursor.Decode(&finding); err != nil {
			return result, &schemas.QueryError{Collection: collection, Op: "day buckets decode", Err: err}
		}
		key, value := MapFindingToDay(&finding)
		acc[key] = ReduceDayValues(key, []schemas.DayValue{acc[key], value})
	}
	if err := cursor.Err(); err != nil {
		return result, &schemas.QueryError{Collection: collection, Op: "day buckets iterate", Err: err}
	}

	result.Buckets = sortedBuckets(acc)
	s.log.Debug("day bucket job complete",
		zap.String("collection", collection),
		zap.Int("days", len(result.Buckets)))
	return result, nil
}
