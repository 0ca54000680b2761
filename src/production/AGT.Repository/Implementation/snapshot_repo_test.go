package implementation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

func u8(v uint8) *uint8      { return &v }
func f64(v float64) *float64 { return &v }

func TestSnapshotUpdateIsSetOnlyMerge(t *testing.T) {
	snap := &agtmodels.DeviceStateSnapshot{
		DeviceID:   "farm-node-01",
		LastSeenAt: "2026-03-14T09:26:00Z",
		UpdatedAt:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Source:     "ttn-webhook",
		SensorState: agtmodels.SensorState{
			TemperatureC:        f64(10.0),
			SoilMoisturePercent: u8(45),
			BatteryRaw:          u8(200),
			WaterLevelPercent:   u8(80),
			GingerValve:         true,
			FlagsRaw:            0x02,
		},
		Payload: &agtmodels.DecodedPayload{
			GingerMoisturePercent: u8(60),
			CherryMoisturePercent: u8(45),
		},
	}

	update := snapshotUpdate(snap)
	require.Len(t, update, 1, "update must contain $set and nothing else")
	set, ok := update["$set"].(bson.M)
	require.True(t, ok)

	assert.Equal(t, "2026-03-14T09:26:00Z", set["last_seen_at"])
	assert.Equal(t, "ttn-webhook", set["source"])
	assert.Equal(t, f64(10.0), set["temperature_c"])
	assert.Equal(t, u8(45), set["soil_moisture_percent"])
	assert.Equal(t, true, set["ginger_valve"])
	assert.Equal(t, false, set["pump"])
	assert.NotContains(t, update, "$unset")
	assert.NotContains(t, set, "_id", "the key is the filter, never part of the merge")
}

func TestSnapshotUpdateDecodeFailureLeavesSensorStateAlone(t *testing.T) {
	snap := &agtmodels.DeviceStateSnapshot{
		DeviceID:    "farm-node-01",
		LastSeenAt:  "2026-03-14T09:26:00Z",
		Source:      "ttn-webhook",
		DecodeError: "frame decode: payload too short: frame requires 6 bytes",
	}

	set := snapshotUpdate(snap)["$set"].(bson.M)
	assert.Equal(t, snap.DecodeError, set["decode_error"])
	assert.NotContains(t, set, "payload")
	assert.NotContains(t, set, "temperature_c")
	assert.NotContains(t, set, "soil_moisture_percent")
	assert.NotContains(t, set, "pump")
}

func TestSnapshotUpdateClearsStaleDecodeError(t *testing.T) {
	snap := &agtmodels.DeviceStateSnapshot{
		DeviceID: "farm-node-01",
		Payload:  &agtmodels.DecodedPayload{},
	}
	set := snapshotUpdate(snap)["$set"].(bson.M)
	assert.Equal(t, "", set["decode_error"], "a good uplink clears the previous marker")
}
