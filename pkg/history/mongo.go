package history

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kmoselund/qpermute/pkg/cache"
)

// DefaultCollection is the collection evaluation records are written to.
const DefaultCollection = "evaluations"

// Mongo persists records to a MongoDB collection, for searches spread across
// cluster nodes that share one history database.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	runID  string
}

// NewMongo connects to the MongoDB instance at uri and verifies the
// connection. Records written without a RunID are stamped with runID.
func NewMongo(ctx context.Context, uri, database, runID string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return cache.Retryable(fmt.Errorf("ping mongo: %w", err))
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(DefaultCollection),
		runID:  runID,
	}, nil
}

// Record inserts one record as a BSON document.
func (m *Mongo) Record(ctx context.Context, rec Record) error {
	stamp(&rec, m.runID)
	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Recorder = (*Mongo)(nil)
