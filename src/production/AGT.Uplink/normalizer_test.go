package uplink

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func u8(v uint8) *uint8      { return &v }
func f64(v float64) *float64 { return &v }

func envelopeWithFrame(frame []byte) *agtmodels.WebhookEnvelope {
	return &agtmodels.WebhookEnvelope{
		Data: &agtmodels.ApplicationUp{
			EndDeviceIDs: &agtmodels.EndDeviceIDs{DeviceID: "farm-node-01"},
			ReceivedAt:   "2026-03-14T09:26:00Z",
			UplinkMessage: &agtmodels.UplinkMessage{
				FPort:      1,
				FrmPayload: base64.StdEncoding.EncodeToString(frame),
			},
		},
	}
}

func TestNormalizeIdentityPrimary(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, "farm-node-01", snap.DeviceID)
}

func TestNormalizeIdentityAlternateLocation(t *testing.T) {
	primary := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})

	alternate := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	alternate.Data.EndDeviceIDs = nil
	alternate.Identifiers = []agtmodels.EntityIdentifiers{
		{DeviceIDs: &agtmodels.EndDeviceIDs{DeviceID: "farm-node-01"}},
	}

	assert.Equal(t,
		Normalize(primary, "ttn-webhook", testNow).DeviceID,
		Normalize(alternate, "ttn-webhook", testNow).DeviceID)
}

func TestNormalizeIdentityPlaceholder(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	env.Data.EndDeviceIDs = nil

	snap := Normalize(env, "ttn-webhook", testNow)
	assert.True(t, strings.HasPrefix(snap.DeviceID, UnknownDevicePrefix))
	assert.Greater(t, len(snap.DeviceID), len(UnknownDevicePrefix))

	// two identity-less uplinks must not collide under one key
	other := Normalize(env, "ttn-webhook", testNow)
	assert.NotEqual(t, snap.DeviceID, other.DeviceID)
}

func TestNormalizeDecodesRawFrame(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	snap := Normalize(env, "ttn-webhook", testNow)

	require.NotNil(t, snap.Payload)
	assert.Empty(t, snap.DecodeError)
	assert.Equal(t, u8(60), snap.Payload.GingerMoisturePercent)
	assert.Equal(t, u8(45), snap.Payload.CherryMoisturePercent)
	assert.Equal(t, f64(10.0), snap.TemperatureC)
	assert.Equal(t, u8(200), snap.BatteryRaw)
	assert.True(t, snap.GingerValve)
	assert.False(t, snap.CherryValve)
	assert.False(t, snap.Pump)
	assert.Equal(t, u8(45), snap.SoilMoisturePercent)
	assert.Equal(t, u8(80), snap.WaterLevelPercent)
}

func TestNormalizePrefersUpstreamDecodedPayload(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	env.Data.UplinkMessage.DecodedPayload = map[string]interface{}{
		"ginger_moisture": 11.0,
		"cherry_moisture": 22.0,
		"temperature":     -1.5,
		"battery":         33.0,
		"pump":            true,
		"flags":           8.0,
	}

	snap := Normalize(env, "ttn-webhook", testNow)
	require.NotNil(t, snap.Payload)
	assert.Equal(t, u8(11), snap.Payload.GingerMoisturePercent)
	assert.Equal(t, u8(22), snap.Payload.CherryMoisturePercent)
	assert.Equal(t, f64(-1.5), snap.TemperatureC)
	assert.Equal(t, u8(33), snap.BatteryRaw)
	assert.True(t, snap.Pump)
	assert.Equal(t, uint8(8), snap.FlagsRaw)
}

func TestNormalizeBadBase64BecomesErrorMarker(t *testing.T) {
	env := envelopeWithFrame(nil)
	env.Data.UplinkMessage.FrmPayload = "%%%not-base64%%%"

	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Nil(t, snap.Payload)
	assert.Contains(t, snap.DecodeError, "base64")
	assert.Equal(t, "farm-node-01", snap.DeviceID, "identity survives a decode failure")
}

func TestNormalizeShortFrameBecomesErrorMarker(t *testing.T) {
	env := envelopeWithFrame([]byte{1, 2, 3})
	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Nil(t, snap.Payload)
	assert.Contains(t, snap.DecodeError, "frame decode")
}

func TestNormalizeMissingUplinkMessage(t *testing.T) {
	env := envelopeWithFrame(nil)
	env.Data.UplinkMessage = nil
	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Nil(t, snap.Payload)
	assert.NotEmpty(t, snap.DecodeError)
}

func TestNormalizeMoistureProxyFallback(t *testing.T) {
	env := envelopeWithFrame(nil)
	env.Data.UplinkMessage.DecodedPayload = map[string]interface{}{
		"ginger_moisture": 70.0,
		"cherry_moisture": 30.0,
	}
	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, u8(30), snap.SoilMoisturePercent, "cherry wins when present")

	env.Data.UplinkMessage.DecodedPayload = map[string]interface{}{
		"ginger_moisture": 70.0,
	}
	snap = Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, u8(70), snap.SoilMoisturePercent, "ginger is the fallback")
}

func TestNormalizeRadioFirstGatewayWins(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	env.Data.UplinkMessage.RxMetadata = []agtmodels.RxMetadata{
		{
			GatewayIDs: agtmodels.GatewayIDs{GatewayID: "gw-roof"},
			RSSI:       f64(-42),
			SNR:        f64(9.25),
		},
		{
			GatewayIDs: agtmodels.GatewayIDs{GatewayID: "gw-barn"},
			RSSI:       f64(-10),
			SNR:        f64(12),
		},
	}

	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, "gw-roof", snap.Radio.GatewayID)
	assert.Equal(t, f64(-42), snap.Radio.RSSI)
	assert.Equal(t, f64(9.25), snap.Radio.SNR)
}

func TestNormalizeRadioAbsent(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Nil(t, snap.Radio.RSSI)
	assert.Nil(t, snap.Radio.SNR)
	assert.Empty(t, snap.Radio.GatewayID)
}

func TestNormalizeTimestampFallbackOrder(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	env.Data.ReceivedAt = "2026-03-14T10:00:00+02:00"
	env.Data.UplinkMessage.ReceivedAt = "2026-03-14T11:00:00Z"

	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, "2026-03-14T08:00:00Z", snap.LastSeenAt, "container timestamp wins, normalized to UTC")

	env.Data.ReceivedAt = ""
	snap = Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, "2026-03-14T11:00:00Z", snap.LastSeenAt, "message timestamp is second")

	env.Data.UplinkMessage.ReceivedAt = ""
	snap = Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, testNow.Format(time.RFC3339Nano), snap.LastSeenAt, "wall clock is last")
}

func TestNormalizeUnparseableTimestampFallsThrough(t *testing.T) {
	env := envelopeWithFrame([]byte{60, 45, 20, 200, 0x02, 80})
	env.Data.ReceivedAt = "yesterday-ish"
	env.Data.UplinkMessage.ReceivedAt = "2026-03-14T11:00:00Z"

	snap := Normalize(env, "ttn-webhook", testNow)
	assert.Equal(t, "2026-03-14T11:00:00Z", snap.LastSeenAt)
}
