package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MeterPoint is a metering point identified by its 13-digit MPAN.
type MeterPoint struct {
	ID   int64
	MPAN string
}

// Meter is a physical meter at a meter point. MeterType is fixed when the
// meter is first created.
type Meter struct {
	ID           int64
	MeterPointID int64
	SerialNumber string
	MeterType    string
}

// Reading is a stored register reading. (MeterID, RegisterID, ReadingDate) is
// unique; the first import to write a triple owns its value and FlowFileID.
type Reading struct {
	ID          int64
	MeterID     int64
	RegisterID  string
	ReadingDate time.Time
	Value       decimal.Decimal
	ReadingType string
	FlowFileID  uuid.UUID
}

// FlowFile records one imported file. RecordCount is the number of readings
// the file newly created, not the number it contained.
type FlowFile struct {
	ID            uuid.UUID
	Filename      string
	FileReference string
	RecordCount   int
	ImportedAt    time.Time
}

// Store is the persistence boundary for the importer.
// Implementations: store.Postgres (pgx) and memory.Store (tests).
type Store interface {
	// FlowFileExists reports whether filename has already been imported.
	FlowFileExists(ctx context.Context, filename string) (bool, error)

	// WithTx runs fn in a single transaction. The transaction commits only if
	// fn returns nil; otherwise every write made through tx is discarded.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// Tx is the set of writes available inside Store.WithTx.
//
// The GetOrCreate methods look up by natural key and insert only when absent.
// They return the existing or new row and whether it was created. Attributes
// other than the natural key are written on creation only and never updated.
type Tx interface {
	// CreateFlowFile inserts f. A filename that already exists fails with
	// *DuplicateError.
	CreateFlowFile(ctx context.Context, f FlowFile) (FlowFile, error)

	GetOrCreateMeterPoint(ctx context.Context, mpan string) (MeterPoint, bool, error)
	GetOrCreateMeter(ctx context.Context, meterPointID int64, serial, meterType string) (Meter, bool, error)
	GetOrCreateReading(ctx context.Context, r Reading) (Reading, bool, error)

	SetFlowFileRecordCount(ctx context.Context, id uuid.UUID, count int) error
}
