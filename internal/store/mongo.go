package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/internal/config"
)

// Connect dials the document store, verifies the connection and returns a
// ready store plus a disconnect function for shutdown.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, func(context.Context) error, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	db := &mongoDatabase{db: client.Database(cfg.Name)}
	return New(db, logger), client.Disconnect, nil
}

// mongoDatabase adapts *mongo.Database to the Database interface.
type mongoDatabase struct {
	db *mongo.Database
}

func (m *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: m.db.Collection(name)}
}

// mongoCollection adapts *mongo.Collection; the driver returns concrete
// cursor types, so each method rewraps them in the store interfaces.
type mongoCollection struct {
	coll *mongo.Collection
}

func (m *mongoCollection) Aggregate(ctx context.Context, pipeline interface{}) (Cursor, error) {
	cur, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (m *mongoCollection) Find(ctx context.Context, filter interface{}) (Cursor, error) {
	cur, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (m *mongoCollection) FindOne(ctx context.Context, filter interface{}) SingleResult {
	return m.coll.FindOne(ctx, filter)
}

func (m *mongoCollection) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return m.coll.CountDocuments(ctx, filter)
}
