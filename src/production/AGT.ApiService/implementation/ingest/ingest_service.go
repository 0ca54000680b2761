// Package ingest owns the uplink ingestion pipeline: validate the envelope,
// decode and normalize it, then persist the latest-state snapshot and append
// the history record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
	interfaces "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Repository/Interfaces"
	uplink "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Uplink"
)

// ErrInvalidEnvelope marks the single hard-rejection case: the webhook body
// lacks its data container. Everything past this check degrades instead of
// failing.
var ErrInvalidEnvelope = errors.New("invalid TTN body")

// Result is the acknowledgement of one ingested uplink.
type Result struct {
	DeviceID       string
	HistoryWritten bool
}

// Service runs the ingestion pipeline. One instance serves concurrent
// requests; it holds no per-request state.
type Service struct {
	snapshots interfaces.SnapshotRepository
	history   interfaces.HistoryRepository
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates the ingestion service.
func NewService(snapshots interfaces.SnapshotRepository, history interfaces.HistoryRepository, log *logger.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		history:   history,
		logger:    log.WithComponent("ingest"),
		now:       time.Now,
	}
}

// Ingest processes one uplink envelope. A snapshot persistence failure fails
// the whole request; a history failure after a successful snapshot write is
// reported in the Result but does not fail ingestion, because the snapshot
// is the operationally important artifact. The two writes are deliberately
// not atomic.
func (s *Service) Ingest(ctx context.Context, env *agtmodels.WebhookEnvelope, source string) (*Result, error) {
	if env == nil || env.Data == nil {
		return nil, ErrInvalidEnvelope
	}

	now := s.now().UTC()
	snap := uplink.Normalize(env, source, now)
	snap.UpdatedAt = now

	if snap.DecodeError != "" {
		s.logger.WithField("device_id", snap.DeviceID).Warn("uplink payload not decodable: " + snap.DecodeError)
	}

	if err := s.snapshots.UpsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot for %s: %w", snap.DeviceID, err)
	}

	rec := historyRecord(snap, now)
	if err := s.history.AppendRecord(ctx, rec); err != nil {
		// Ingested but history incomplete; the uplink is not rolled back.
		s.logger.WithField("device_id", snap.DeviceID).ErrorWithError(err, "history append failed after snapshot write")
		return &Result{DeviceID: snap.DeviceID, HistoryWritten: false}, nil
	}

	return &Result{DeviceID: snap.DeviceID, HistoryWritten: true}, nil
}

func historyRecord(snap *agtmodels.DeviceStateSnapshot, recordedAt time.Time) *agtmodels.UplinkHistoryRecord {
	return &agtmodels.UplinkHistoryRecord{
		DeviceID:    snap.DeviceID,
		ReceivedAt:  snap.LastSeenAt,
		RecordedAt:  recordedAt,
		Source:      snap.Source,
		SensorState: snap.SensorState,
		Radio:       snap.Radio,
		Payload:     snap.Payload,
		DecodeError: snap.DecodeError,
	}
}
