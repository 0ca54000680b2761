package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// MongoSnapshotRepository stores one device-state document per device id.
type MongoSnapshotRepository struct {
	coll *mongo.Collection
}

func NewMongoSnapshotRepository(coll *mongo.Collection) *MongoSnapshotRepository {
	return &MongoSnapshotRepository{coll: coll}
}

// UpsertSnapshot merge-writes via $set + upsert. Two uplinks for the same
// device may race; last write wins by server write time, which is acceptable
// because the radio protocol spaces uplinks far apart.
func (r *MongoSnapshotRepository) UpsertSnapshot(ctx context.Context, snap *agtmodels.DeviceStateSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": snap.DeviceID},
		snapshotUpdate(snap),
		options.Update().SetUpsert(true))
	return err
}

// snapshotUpdate builds a $set-only update document: no replacement, no
// $unset, so document fields this uplink does not carry stay untouched.
// Sensor fields are written only when a payload was actually obtained; a
// decode failure updates the envelope-level fields and the error marker but
// leaves the last good sensor state in place.
func snapshotUpdate(snap *agtmodels.DeviceStateSnapshot) bson.M {
	set := bson.M{
		"last_seen_at": snap.LastSeenAt,
		"updated_at":   snap.UpdatedAt,
		"source":       snap.Source,
		"radio":        snap.Radio,
		"decode_error": snap.DecodeError,
	}
	if snap.Payload != nil {
		set["payload"] = snap.Payload
		set["temperature_c"] = snap.TemperatureC
		set["soil_moisture_percent"] = snap.SoilMoisturePercent
		set["battery_raw"] = snap.BatteryRaw
		set["water_level_percent"] = snap.WaterLevelPercent
		set["rain"] = snap.Rain
		set["ginger_valve"] = snap.GingerValve
		set["cherry_valve"] = snap.CherryValve
		set["pump"] = snap.Pump
		set["flags_raw"] = snap.FlagsRaw
	}
	return bson.M{"$set": set}
}

func (r *MongoSnapshotRepository) GetSnapshot(ctx context.Context, deviceID string) (*agtmodels.DeviceStateSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var snap agtmodels.DeviceStateSnapshot
	err := r.coll.FindOne(ctx, bson.M{"_id": deviceID}).Decode(&snap)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

func (r *MongoSnapshotRepository) ListSnapshots(ctx context.Context) ([]agtmodels.DeviceStateSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var snaps []agtmodels.DeviceStateSnapshot
	if err := cur.All(ctx, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}
