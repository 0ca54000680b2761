package agtmodels

// TTN v3 webhook envelope. Field names follow the wire format of The Things
// Stack application webhooks; only the parts the ingestion pipeline consumes
// are modelled, unknown fields are ignored by encoding/json.

type ApplicationIDs struct {
	ApplicationID string `json:"application_id,omitempty"`
}

type EndDeviceIDs struct {
	DeviceID       string         `json:"device_id,omitempty"`
	ApplicationIDs ApplicationIDs `json:"application_ids,omitempty"`
	DevEUI         string         `json:"dev_eui,omitempty"`
	JoinEUI        string         `json:"join_eui,omitempty"`
	DevAddr        string         `json:"dev_addr,omitempty"`
}

type GatewayIDs struct {
	GatewayID string `json:"gateway_id,omitempty"`
	EUI       string `json:"eui,omitempty"`
}

type RxMetadata struct {
	GatewayIDs  GatewayIDs `json:"gateway_ids,omitempty"`
	RxTime      string     `json:"time,omitempty"`
	RxTimestamp int64      `json:"timestamp,omitempty"`
	RSSI        *float64   `json:"rssi,omitempty"`
	ChannelRSSI *float64   `json:"channel_rssi,omitempty"`
	SNR         *float64   `json:"snr,omitempty"`
}

// UplinkMessage is the radio-layer uplink inside the data container.
// FrmPayload stays a string so a malformed base64 value reaches the
// normalizer instead of failing the whole envelope unmarshal.
type UplinkMessage struct {
	SessionKeyID   string                 `json:"session_key_id,omitempty"`
	FPort          uint32                 `json:"f_port"`
	FCnt           uint32                 `json:"f_cnt"`
	FrmPayload     string                 `json:"frm_payload,omitempty"`
	DecodedPayload map[string]interface{} `json:"decoded_payload,omitempty"`
	RxMetadata     []RxMetadata           `json:"rx_metadata,omitempty"`
	ReceivedAt     string                 `json:"received_at,omitempty"`
}

// ApplicationUp is the required data container of a webhook call.
type ApplicationUp struct {
	EndDeviceIDs  *EndDeviceIDs  `json:"end_device_ids,omitempty"`
	ReceivedAt    string         `json:"received_at,omitempty"`
	UplinkMessage *UplinkMessage `json:"uplink_message,omitempty"`
}

// EntityIdentifiers is one entry of the alternate top-level identifiers list
// emitted by event-stream style deliveries.
type EntityIdentifiers struct {
	DeviceIDs *EndDeviceIDs `json:"device_ids,omitempty"`
}

// WebhookEnvelope is the as-received webhook body. Data is the only member
// ingestion hard-requires; everything else has a fallback.
type WebhookEnvelope struct {
	Name           string              `json:"name,omitempty"`
	Time           string              `json:"time,omitempty"`
	Identifiers    []EntityIdentifiers `json:"identifiers,omitempty"`
	CorrelationIDs []string            `json:"correlation_ids,omitempty"`
	Data           *ApplicationUp      `json:"data,omitempty"`
}
