// Package uplink normalizes heterogeneous network-server envelopes into the
// canonical device-state record.
//
// Each concern (identity, payload, radio metadata, timestamp, moisture proxy)
// is an ordered chain of named extraction strategies: the most specific
// source first, then looser ones. Different network-server versions populate
// different locations, so the chain order is part of the contract.
package uplink

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	codec "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Codec"
	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// UnknownDevicePrefix starts every synthesized placeholder identifier, so
// identity-less uplinks stay greppable in the store.
const UnknownDevicePrefix = "unknown-"

// Normalize maps a webhook envelope into a snapshot-shaped record. It never
// fails: every extraction degrades to a placeholder, a nil field, or an
// error marker instead of dropping the uplink. The caller owns validation of
// the envelope's data container; Normalize assumes env.Data is present.
func Normalize(env *agtmodels.WebhookEnvelope, source string, now time.Time) *agtmodels.DeviceStateSnapshot {
	snap := &agtmodels.DeviceStateSnapshot{
		DeviceID:   resolveDeviceID(env),
		LastSeenAt: resolveReceivedAt(env, now),
		Source:     source,
	}

	payload, decodeErr := resolvePayload(env.Data.UplinkMessage)
	snap.Payload = payload
	snap.DecodeError = decodeErr
	if payload != nil {
		snap.SensorState = agtmodels.SensorState{
			TemperatureC:        payload.TemperatureC,
			SoilMoisturePercent: moistureProxy(payload),
			BatteryRaw:          payload.BatteryRaw,
			WaterLevelPercent:   payload.WaterLevelPercent,
			Rain:                payload.Rain,
			GingerValve:         payload.GingerValve,
			CherryValve:         payload.CherryValve,
			Pump:                payload.Pump,
			FlagsRaw:            payload.FlagsRaw,
		}
	}

	snap.Radio = resolveRadio(env.Data.UplinkMessage)
	return snap
}

// resolveDeviceID: nested end-device identifiers in the data container first,
// then the alternate top-level identifiers list, then a synthesized
// placeholder. Dropping the uplink over a missing identity would lose data.
func resolveDeviceID(env *agtmodels.WebhookEnvelope) string {
	if ids := env.Data.EndDeviceIDs; ids != nil && ids.DeviceID != "" {
		return ids.DeviceID
	}
	for _, ident := range env.Identifiers {
		if ident.DeviceIDs != nil && ident.DeviceIDs.DeviceID != "" {
			return ident.DeviceIDs.DeviceID
		}
	}
	return UnknownDevicePrefix + uuid.NewString()[:8]
}

// resolvePayload: a server-side decoded payload object wins; otherwise the
// raw base64 frame goes through the codec. Failures become an error marker
// string, never an error value, so a history entry still documents them.
func resolvePayload(msg *agtmodels.UplinkMessage) (*agtmodels.DecodedPayload, string) {
	if msg == nil {
		return nil, "uplink message missing"
	}
	if len(msg.DecodedPayload) > 0 {
		return payloadFromDecoded(msg.DecodedPayload), ""
	}
	if msg.FrmPayload == "" {
		return nil, "no payload in uplink message"
	}
	frame, err := base64.StdEncoding.DecodeString(msg.FrmPayload)
	if err != nil {
		return nil, fmt.Sprintf("frm_payload base64: %v", err)
	}
	payload, err := codec.Decode(frame)
	if err != nil {
		return nil, fmt.Sprintf("frame decode: %v", err)
	}
	return payload, ""
}

// payloadFromDecoded maps the uplink formatter's decoded object onto the
// canonical payload. Every field is optional upstream.
func payloadFromDecoded(m map[string]interface{}) *agtmodels.DecodedPayload {
	p := &agtmodels.DecodedPayload{
		GingerMoisturePercent: byteField(m, "ginger_moisture"),
		CherryMoisturePercent: byteField(m, "cherry_moisture"),
		TemperatureC:          numField(m, "temperature"),
		BatteryRaw:            byteField(m, "battery"),
		Rain:                  boolField(m, "rain"),
		GingerValve:           boolField(m, "ginger_valve"),
		CherryValve:           boolField(m, "cherry_valve"),
		Pump:                  boolField(m, "pump"),
		WaterLevelPercent:     byteField(m, "water_level"),
	}
	if flags := numField(m, "flags"); flags != nil {
		p.FlagsRaw = uint8(*flags)
	}
	return p
}

// resolveRadio takes the first receive-metadata entry as authoritative; no
// best-of-signal selection across gateways.
func resolveRadio(msg *agtmodels.UplinkMessage) agtmodels.RadioMetadata {
	if msg == nil || len(msg.RxMetadata) == 0 {
		return agtmodels.RadioMetadata{}
	}
	rx := msg.RxMetadata[0]
	return agtmodels.RadioMetadata{
		RSSI:      rx.RSSI,
		SNR:       rx.SNR,
		GatewayID: rx.GatewayIDs.GatewayID,
	}
}

// resolveReceivedAt: data container timestamp, then the one nested in the
// uplink message, then wall clock. Always rendered as RFC3339 UTC so clients
// never see a platform-native timestamp.
func resolveReceivedAt(env *agtmodels.WebhookEnvelope, now time.Time) string {
	candidates := []string{env.Data.ReceivedAt}
	if env.Data.UplinkMessage != nil {
		candidates = append(candidates, env.Data.UplinkMessage.ReceivedAt)
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, c); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return now.UTC().Format(time.RFC3339Nano)
}

// moistureProxy prefers the cherry-crop reading and falls back to ginger.
// Lossy on purpose; both raw values survive in the payload field.
func moistureProxy(p *agtmodels.DecodedPayload) *uint8 {
	if p.CherryMoisturePercent != nil {
		return p.CherryMoisturePercent
	}
	return p.GingerMoisturePercent
}

func numField(m map[string]interface{}, key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func byteField(m map[string]interface{}, key string) *uint8 {
	f := numField(m, key)
	if f == nil || *f < 0 || *f > 255 {
		return nil
	}
	b := uint8(*f)
	return &b
}

func boolField(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
