// Package codec decodes the fixed-layout binary frame carried in field
// device uplinks.
//
// Frame layout (6 bytes, fixed width):
//
//	byte 0  ginger moisture, raw percent
//	byte 1  cherry moisture, raw percent
//	byte 2  temperature, signed, 0.5 degC resolution, 0x80 = no reading
//	byte 3  battery, raw, 0xFF = no reading
//	byte 4  flags bitfield (bit0 rain, bit1 ginger valve, bit2 cherry valve,
//	        bit3 pump; high bits reserved)
//	byte 5  water level, raw percent, 0xFF = no reading
//
// Bytes past index 5 belong to future firmware revisions and are ignored.
package codec

import (
	"errors"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// FrameLength is the minimum (and currently only) frame size.
const FrameLength = 6

const (
	tempNoReading = 0x80
	byteNoReading = 0xFF

	flagRain        = 0x01
	flagGingerValve = 0x02
	flagCherryValve = 0x04
	flagPump        = 0x08
)

// ErrPayloadTooShort is returned for frames below FrameLength bytes.
var ErrPayloadTooShort = errors.New("payload too short: frame requires 6 bytes")

// Decode parses a raw frame into a DecodedPayload. It is a pure function of
// the input bytes: no partial result is ever returned and the frame is never
// mutated.
func Decode(frame []byte) (*agtmodels.DecodedPayload, error) {
	if len(frame) < FrameLength {
		return nil, ErrPayloadTooShort
	}

	ginger := frame[0]
	cherry := frame[1]
	p := &agtmodels.DecodedPayload{
		GingerMoisturePercent: &ginger,
		CherryMoisturePercent: &cherry,
		Rain:                  frame[4]&flagRain != 0,
		GingerValve:           frame[4]&flagGingerValve != 0,
		CherryValve:           frame[4]&flagCherryValve != 0,
		Pump:                  frame[4]&flagPump != 0,
		FlagsRaw:              frame[4],
	}

	// The temperature byte is two's-complement; reading it unsigned would
	// corrupt every sub-zero measurement.
	if frame[2] != tempNoReading {
		t := float64(int8(frame[2])) / 2.0
		p.TemperatureC = &t
	}

	if frame[3] != byteNoReading {
		b := frame[3]
		p.BatteryRaw = &b
	}

	if frame[5] != byteNoReading {
		w := frame[5]
		p.WaterLevelPercent = &w
	}

	return p, nil
}
