package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// MongoHistoryRepository appends immutable per-uplink records. Insertion
// order is the received order; nothing here ever updates or deletes.
type MongoHistoryRepository struct {
	coll *mongo.Collection
}

func NewMongoHistoryRepository(coll *mongo.Collection) *MongoHistoryRepository {
	return &MongoHistoryRepository{coll: coll}
}

func (r *MongoHistoryRepository) AppendRecord(ctx context.Context, rec *agtmodels.UplinkHistoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

func (r *MongoHistoryRepository) ListByDevice(ctx context.Context, deviceID string, limit int64) ([]agtmodels.UplinkHistoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"device_id": deviceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []agtmodels.UplinkHistoryRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// EnsureIndexes creates the device+time index the history queries rely on.
// Safe to call on every startup.
func (r *MongoHistoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "device_id", Value: 1},
			{Key: "recorded_at", Value: -1},
		},
	})
	return err
}
