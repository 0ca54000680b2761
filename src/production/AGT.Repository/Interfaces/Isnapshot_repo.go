package interfaces

import (
	"context"

	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// SnapshotRepository manages the one-document-per-device latest-state
// collection.
type SnapshotRepository interface {
	// UpsertSnapshot merge-writes the snapshot keyed by device id: fields
	// carried by this uplink overwrite, absent fields stay untouched.
	UpsertSnapshot(ctx context.Context, snap *agtmodels.DeviceStateSnapshot) error

	// GetSnapshot returns the snapshot for a device, or nil when none exists.
	GetSnapshot(ctx context.Context, deviceID string) (*agtmodels.DeviceStateSnapshot, error)

	// ListSnapshots returns all device snapshots, most recently updated first.
	ListSnapshots(ctx context.Context) ([]agtmodels.DeviceStateSnapshot, error)
}
