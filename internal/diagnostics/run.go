package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ethercat-master/internal/dc"
)

// SubDeviceRecord is one sub-device's topology and delay outcome from a
// completed DC reconstruction pass.
type SubDeviceRecord struct {
	Index              uint16
	ConfiguredAddress  uint16
	Topology           string
	HasParent          bool
	ParentIndex        uint16
	PropagationDelayNS uint32
}

// Run is one DC commissioning pass: when it happened and the resulting
// per-sub-device topology and delay records.
type Run struct {
	ID               uuid.UUID
	StartedAt        time.Time
	ReferenceAddress uint16
	HasReference     bool
	SubDevices       []SubDeviceRecord
}

// NewRun builds a Run from a reconstructed topology, ready to persist.
// subdevices must already have had dc.ReconstructAndComputeDelays run
// over them.
func NewRun(startedAt time.Time, subdevices []dc.SubDevice) Run {
	run := Run{
		ID:        uuid.New(),
		StartedAt: startedAt,
	}
	if ref, ok := dc.ReferenceClock(subdevices); ok {
		run.ReferenceAddress = ref.ConfiguredAddress
		run.HasReference = true
	}
	run.SubDevices = make([]SubDeviceRecord, len(subdevices))
	for i, sd := range subdevices {
		run.SubDevices[i] = SubDeviceRecord{
			Index:              sd.Index,
			ConfiguredAddress:  sd.ConfiguredAddress,
			Topology:           sd.Ports.Topology().String(),
			HasParent:          sd.HasParent,
			ParentIndex:        sd.ParentIndex,
			PropagationDelayNS: sd.PropagationDelay,
		}
	}
	return run
}

// RecordRun persists a completed DC run and its sub-device rows in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("diagnostics: begin tx: %w", err)
	}
	defer tx.Rollback()

	var refAddr any
	if run.HasReference {
		refAddr = run.ReferenceAddress
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dc_runs (run_id, started_at, subdevice_count, reference_address) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt, len(run.SubDevices), refAddr)
	if err != nil {
		return fmt.Errorf("diagnostics: insert run: %w", err)
	}

	for _, sd := range run.SubDevices {
		var parentIdx any
		if sd.HasParent {
			parentIdx = sd.ParentIndex
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dc_subdevices (run_id, subdevice_index, configured_address, topology, has_parent, parent_index, propagation_delay_ns)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(), sd.Index, sd.ConfiguredAddress, sd.Topology, sd.HasParent, parentIdx, sd.PropagationDelayNS)
		if err != nil {
			return fmt.Errorf("diagnostics: insert subdevice %d: %w", sd.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("diagnostics: commit run: %w", err)
	}
	return nil
}

// RecordPDUError logs a PDU-loop error event, optionally associated with
// a run.
func (s *Store) RecordPDUError(ctx context.Context, runID *uuid.UUID, occurredAt time.Time, message string) error {
	var id any
	if runID != nil {
		id = runID.String()
	}
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO pdu_errors (run_id, occurred_at, message) VALUES (?, ?, ?)`,
		id, occurredAt, message)
	if err != nil {
		return fmt.Errorf("diagnostics: insert pdu error: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, up to limit (0
// means no limit).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, reference_address FROM dc_runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var idStr string
		var startedAt time.Time
		var refAddr sql.NullInt64
		if err := rows.Scan(&idStr, &startedAt, &refAddr); err != nil {
			return nil, fmt.Errorf("diagnostics: scan run: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("diagnostics: parse run id %q: %w", idStr, err)
		}
		run := Run{ID: id, StartedAt: startedAt}
		if refAddr.Valid {
			run.ReferenceAddress = uint16(refAddr.Int64)
			run.HasReference = true
		}
		subdevices, err := s.subdevicesForRun(ctx, idStr)
		if err != nil {
			return nil, err
		}
		run.SubDevices = subdevices
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) subdevicesForRun(ctx context.Context, runID string) ([]SubDeviceRecord, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT subdevice_index, configured_address, topology, has_parent, parent_index, propagation_delay_ns
		 FROM dc_subdevices WHERE run_id = ? ORDER BY subdevice_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: list subdevices: %w", err)
	}
	defer rows.Close()

	var out []SubDeviceRecord
	for rows.Next() {
		var sd SubDeviceRecord
		var parentIdx sql.NullInt64
		if err := rows.Scan(&sd.Index, &sd.ConfiguredAddress, &sd.Topology, &sd.HasParent, &parentIdx, &sd.PropagationDelayNS); err != nil {
			return nil, fmt.Errorf("diagnostics: scan subdevice: %w", err)
		}
		if parentIdx.Valid {
			sd.ParentIndex = uint16(parentIdx.Int64)
		}
		out = append(out, sd)
	}
	return out, rows.Err()
}
