package agtmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SensorState holds the flattened convenience fields shared by the snapshot
// and the history record. SoilMoisturePercent is the single moisture proxy:
// cherry-crop reading first, ginger-crop reading when cherry is absent. The
// underlying values stay intact in the embedding record's Payload.
type SensorState struct {
	TemperatureC        *float64 `bson:"temperature_c,omitempty" json:"temperature_c,omitempty"`
	SoilMoisturePercent *uint8   `bson:"soil_moisture_percent,omitempty" json:"soil_moisture_percent,omitempty"`
	BatteryRaw          *uint8   `bson:"battery_raw,omitempty" json:"battery_raw,omitempty"`
	WaterLevelPercent   *uint8   `bson:"water_level_percent,omitempty" json:"water_level_percent,omitempty"`
	Rain                bool     `bson:"rain" json:"rain"`
	GingerValve         bool     `bson:"ginger_valve" json:"ginger_valve"`
	CherryValve         bool     `bson:"cherry_valve" json:"cherry_valve"`
	Pump                bool     `bson:"pump" json:"pump"`
	FlagsRaw            uint8    `bson:"flags_raw" json:"flags_raw"`
}

// RadioMetadata is taken from the first gateway that reported the uplink.
type RadioMetadata struct {
	RSSI      *float64 `bson:"rssi,omitempty" json:"rssi,omitempty"`
	SNR       *float64 `bson:"snr,omitempty" json:"snr,omitempty"`
	GatewayID string   `bson:"gateway_id,omitempty" json:"gateway_id,omitempty"`
}

// DeviceStateSnapshot is the canonical latest-known state of one device.
// Exactly one document exists per device id; every uplink merge-updates it.
type DeviceStateSnapshot struct {
	DeviceID    string          `bson:"_id" json:"device_id"`
	LastSeenAt  string          `bson:"last_seen_at" json:"last_seen_at"` // device-reported, RFC3339 UTC
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`    // server write time
	Source      string          `bson:"source" json:"source"`
	SensorState `bson:",inline"`
	Radio       RadioMetadata   `bson:"radio" json:"radio"`
	Payload     *DecodedPayload `bson:"payload,omitempty" json:"payload,omitempty"`
	DecodeError string          `bson:"decode_error,omitempty" json:"decode_error,omitempty"`
}

// UplinkHistoryRecord is one immutable append-only entry per received uplink.
type UplinkHistoryRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DeviceID    string             `bson:"device_id" json:"device_id"`
	ReceivedAt  string             `bson:"received_at" json:"received_at"` // device-reported, RFC3339 UTC
	RecordedAt  time.Time          `bson:"recorded_at" json:"recorded_at"` // server write time
	Source      string             `bson:"source" json:"source"`
	SensorState `bson:",inline"`
	Radio       RadioMetadata   `bson:"radio" json:"radio"`
	Payload     *DecodedPayload `bson:"payload,omitempty" json:"payload,omitempty"`
	DecodeError string          `bson:"decode_error,omitempty" json:"decode_error,omitempty"`
}
