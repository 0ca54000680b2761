package interfaces

import (
	"context"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// HistoryRepository manages the append-only per-device uplink log. Records
// are never updated or deleted here; retention is an external concern.
type HistoryRepository interface {
	// AppendRecord inserts one immutable history record.
	AppendRecord(ctx context.Context, rec *agtmodels.UplinkHistoryRecord) error

	// ListByDevice returns up to limit records for a device, newest first.
	ListByDevice(ctx context.Context, deviceID string, limit int64) ([]agtmodels.UplinkHistoryRecord, error)
}
