package agtmodels

// DecodedPayload is the structured result of decoding one sensor frame, or of
// accepting a payload the network server already decoded.
//
// Optional readings are pointers: nil means the sensor reported its sentinel
// value (or the upstream decoded object omitted the field), never zero.
type DecodedPayload struct {
	GingerMoisturePercent *uint8   `bson:"ginger_moisture_percent,omitempty" json:"ginger_moisture_percent,omitempty"`
	CherryMoisturePercent *uint8   `bson:"cherry_moisture_percent,omitempty" json:"cherry_moisture_percent,omitempty"`
	TemperatureC          *float64 `bson:"temperature_c,omitempty" json:"temperature_c,omitempty"`
	BatteryRaw            *uint8   `bson:"battery_raw,omitempty" json:"battery_raw,omitempty"`
	Rain                  bool     `bson:"rain" json:"rain"`
	GingerValve           bool     `bson:"ginger_valve" json:"ginger_valve"`
	CherryValve           bool     `bson:"cherry_valve" json:"cherry_valve"`
	Pump                  bool     `bson:"pump" json:"pump"`
	FlagsRaw              uint8    `bson:"flags_raw" json:"flags_raw"`
	WaterLevelPercent     *uint8   `bson:"water_level_percent,omitempty" json:"water_level_percent,omitempty"`
}
