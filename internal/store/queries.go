package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// queries implements core.Tx over any DBTX.
type queries struct {
	db DBTX
}

const flowFileExistsSQL = `SELECT EXISTS (SELECT 1 FROM flow_files WHERE filename = $1)`

func flowFileExists(ctx context.Context, db DBTX, filename string) (bool, error) {
	var exists bool
	if err := db.QueryRow(ctx, flowFileExistsSQL, filename).Scan(&exists); err != nil {
		return false, fmt.Errorf("query flow file: %w", err)
	}
	return exists, nil
}

const createFlowFileSQL = `
INSERT INTO flow_files (id, filename, file_reference, record_count, imported_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
RETURNING imported_at`

func (q *queries) CreateFlowFile(ctx context.Context, f core.FlowFile) (core.FlowFile, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	importedAt := pgtype.Timestamptz{Time: f.ImportedAt, Valid: !f.ImportedAt.IsZero()}
	err := q.db.QueryRow(ctx, createFlowFileSQL,
		toPgUUID(f.ID), f.Filename, f.FileReference, f.RecordCount, importedAt,
	).Scan(&importedAt)
	if isUniqueViolation(err, flowFileFilenameUnique) {
		return core.FlowFile{}, &core.DuplicateError{Filename: f.Filename}
	}
	if err != nil {
		return core.FlowFile{}, fmt.Errorf("insert flow file: %w", err)
	}

	f.ImportedAt = importedAt.Time
	return f, nil
}

const (
	insertMeterPointSQL = `
INSERT INTO meter_points (mpan) VALUES ($1)
ON CONFLICT (mpan) DO NOTHING
RETURNING id`

	selectMeterPointSQL = `SELECT id FROM meter_points WHERE mpan = $1`
)

func (q *queries) GetOrCreateMeterPoint(ctx context.Context, mpan string) (core.MeterPoint, bool, error) {
	mp := core.MeterPoint{MPAN: mpan}

	created, err := insertOrSelect(ctx, q.db,
		insertMeterPointSQL, selectMeterPointSQL, []any{mpan}, []any{mpan},
		&mp.ID,
	)
	if err != nil {
		return core.MeterPoint{}, false, fmt.Errorf("get or create meter point %s: %w", mpan, err)
	}
	return mp, created, nil
}

const (
	insertMeterSQL = `
INSERT INTO meters (meter_point_id, serial_number, meter_type) VALUES ($1, $2, $3)
ON CONFLICT (meter_point_id, serial_number) DO NOTHING
RETURNING id, meter_type`

	selectMeterSQL = `SELECT id, meter_type FROM meters WHERE meter_point_id = $1 AND serial_number = $2`
)

func (q *queries) GetOrCreateMeter(ctx context.Context, meterPointID int64, serial, meterType string) (core.Meter, bool, error) {
	m := core.Meter{MeterPointID: meterPointID, SerialNumber: serial}

	created, err := insertOrSelect(ctx, q.db,
		insertMeterSQL, selectMeterSQL,
		[]any{meterPointID, serial, meterType}, []any{meterPointID, serial},
		&m.ID, &m.MeterType,
	)
	if err != nil {
		return core.Meter{}, false, fmt.Errorf("get or create meter %s: %w", serial, err)
	}
	return m, created, nil
}

const (
	insertReadingSQL = `
INSERT INTO readings (meter_id, register_id, reading_date, reading_value, reading_type, flow_file_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (meter_id, register_id, reading_date) DO NOTHING
RETURNING id, reading_value, reading_type, flow_file_id`

	selectReadingSQL = `
SELECT id, reading_value, reading_type, flow_file_id
FROM readings
WHERE meter_id = $1 AND register_id = $2 AND reading_date = $3`
)

func (q *queries) GetOrCreateReading(ctx context.Context, r core.Reading) (core.Reading, bool, error) {
	var (
		value      pgtype.Numeric
		flowFileID pgtype.UUID
	)

	out := core.Reading{
		MeterID:     r.MeterID,
		RegisterID:  r.RegisterID,
		ReadingDate: r.ReadingDate,
	}

	created, err := insertOrSelect(ctx, q.db,
		insertReadingSQL, selectReadingSQL,
		[]any{r.MeterID, r.RegisterID, r.ReadingDate, toPgNumeric(r.Value), r.ReadingType, toPgUUID(r.FlowFileID)},
		[]any{r.MeterID, r.RegisterID, r.ReadingDate},
		&out.ID, &value, &out.ReadingType, &flowFileID,
	)
	if err != nil {
		return core.Reading{}, false, fmt.Errorf("get or create reading: %w", err)
	}

	out.Value, err = fromPgNumeric(value)
	if err != nil {
		return core.Reading{}, false, fmt.Errorf("reading %d value: %w", out.ID, err)
	}
	out.FlowFileID = fromPgUUID(flowFileID)

	return out, created, nil
}

const setFlowFileRecordCountSQL = `UPDATE flow_files SET record_count = $2 WHERE id = $1`

func (q *queries) SetFlowFileRecordCount(ctx context.Context, id uuid.UUID, count int) error {
	tag, err := q.db.Exec(ctx, setFlowFileRecordCountSQL, toPgUUID(id), count)
	if err != nil {
		return fmt.Errorf("update record count: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update record count: flow file %s not found", id)
	}
	return nil
}

// insertOrSelect runs insertSQL, which must use ON CONFLICT DO NOTHING and
// RETURNING. When the insert yields no row the natural key already exists and
// selectSQL loads it into the same destinations. It reports whether the row
// was created.
func insertOrSelect(ctx context.Context, db DBTX, insertSQL, selectSQL string, insertArgs, selectArgs []any, dest ...any) (bool, error) {
	err := db.QueryRow(ctx, insertSQL, insertArgs...).Scan(dest...)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert: %w", err)
	}

	if err := db.QueryRow(ctx, selectSQL, selectArgs...).Scan(dest...); err != nil {
		return false, fmt.Errorf("select existing: %w", err)
	}
	return false, nil
}
