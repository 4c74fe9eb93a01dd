// Package memory is an in-memory core.Store.
//
// Transactions work on a copy of the state and swap it in on success, so a
// failed import leaves no trace, matching the Postgres store. Transactions are
// serialized by a single mutex. Tests use FailOn to inject storage faults.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/google/uuid"
)

// Operation names passed to the FailOn hook.
const (
	OpCreateFlowFile      = "CreateFlowFile"
	OpGetOrCreateMeterPt  = "GetOrCreateMeterPoint"
	OpGetOrCreateMeter    = "GetOrCreateMeter"
	OpGetOrCreateReading  = "GetOrCreateReading"
	OpSetFlowFileRecCount = "SetFlowFileRecordCount"
	OpFlowFileExists      = "FlowFileExists"
)

type meterKey struct {
	meterPointID int64
	serial       string
}

type readingKey struct {
	meterID    int64
	registerID string
	unixNano   int64
}

type state struct {
	meterPoints map[string]core.MeterPoint
	meters      map[meterKey]core.Meter
	readings    map[readingKey]core.Reading
	flowFiles   map[string]core.FlowFile
	nextID      int64
}

func newState() state {
	return state{
		meterPoints: map[string]core.MeterPoint{},
		meters:      map[meterKey]core.Meter{},
		readings:    map[readingKey]core.Reading{},
		flowFiles:   map[string]core.FlowFile{},
	}
}

func (s state) clone() state {
	c := state{
		meterPoints: make(map[string]core.MeterPoint, len(s.meterPoints)),
		meters:      make(map[meterKey]core.Meter, len(s.meters)),
		readings:    make(map[readingKey]core.Reading, len(s.readings)),
		flowFiles:   make(map[string]core.FlowFile, len(s.flowFiles)),
		nextID:      s.nextID,
	}
	for k, v := range s.meterPoints {
		c.meterPoints[k] = v
	}
	for k, v := range s.meters {
		c.meters[k] = v
	}
	for k, v := range s.readings {
		c.readings[k] = v
	}
	for k, v := range s.flowFiles {
		c.flowFiles[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is a core.Store held in memory.
type Store struct {
	mu     sync.Mutex
	st     state
	failOn func(op string) error
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// FailOn installs a hook called before every operation. A non-nil error from
// the hook fails that operation. Pass nil to remove the hook.
func (s *Store) FailOn(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *Store) fault(op string) error {
	if s.failOn == nil {
		return nil
	}
	return s.failOn(op)
}

// FlowFileExists implements core.Store.
func (s *Store) FlowFileExists(ctx context.Context, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpFlowFileExists); err != nil {
		return false, err
	}
	_, ok := s.st.flowFiles[filename]
	return ok, nil
}

// Ping implements core.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{store: s, st: &work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.st = work
	return nil
}

type tx struct {
	store *Store
	st    *state
}

func (t *tx) CreateFlowFile(ctx context.Context, f core.FlowFile) (core.FlowFile, error) {
	if err := t.store.fault(OpCreateFlowFile); err != nil {
		return core.FlowFile{}, err
	}
	if _, ok := t.st.flowFiles[f.Filename]; ok {
		return core.FlowFile{}, &core.DuplicateError{Filename: f.Filename}
	}

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.ImportedAt.IsZero() {
		f.ImportedAt = time.Now().UTC()
	}
	t.st.flowFiles[f.Filename] = f
	return f, nil
}

func (t *tx) GetOrCreateMeterPoint(ctx context.Context, mpan string) (core.MeterPoint, bool, error) {
	if err := t.store.fault(OpGetOrCreateMeterPt); err != nil {
		return core.MeterPoint{}, false, err
	}
	if mp, ok := t.st.meterPoints[mpan]; ok {
		return mp, false, nil
	}

	mp := core.MeterPoint{ID: t.st.id(), MPAN: mpan}
	t.st.meterPoints[mpan] = mp
	return mp, true, nil
}

func (t *tx) GetOrCreateMeter(ctx context.Context, meterPointID int64, serial, meterType string) (core.Meter, bool, error) {
	if err := t.store.fault(OpGetOrCreateMeter); err != nil {
		return core.Meter{}, false, err
	}

	key := meterKey{meterPointID: meterPointID, serial: serial}
	if m, ok := t.st.meters[key]; ok {
		return m, false, nil
	}

	m := core.Meter{
		ID:           t.st.id(),
		MeterPointID: meterPointID,
		SerialNumber: serial,
		MeterType:    meterType,
	}
	t.st.meters[key] = m
	return m, true, nil
}

func (t *tx) GetOrCreateReading(ctx context.Context, r core.Reading) (core.Reading, bool, error) {
	if err := t.store.fault(OpGetOrCreateReading); err != nil {
		return core.Reading{}, false, err
	}

	key := readingKey{meterID: r.MeterID, registerID: r.RegisterID, unixNano: r.ReadingDate.UnixNano()}
	if existing, ok := t.st.readings[key]; ok {
		return existing, false, nil
	}

	r.ID = t.st.id()
	t.st.readings[key] = r
	return r, true, nil
}

func (t *tx) SetFlowFileRecordCount(ctx context.Context, id uuid.UUID, count int) error {
	if err := t.store.fault(OpSetFlowFileRecCount); err != nil {
		return err
	}

	for name, f := range t.st.flowFiles {
		if f.ID == id {
			f.RecordCount = count
			t.st.flowFiles[name] = f
			return nil
		}
	}
	return fmt.Errorf("flow file %s not found", id)
}

// FlowFile returns the committed flow file for filename.
func (s *Store) FlowFile(filename string) (core.FlowFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.st.flowFiles[filename]
	return f, ok
}

// MeterPoints returns committed meter points ordered by ID.
func (s *Store) MeterPoints() []core.MeterPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.MeterPoint, 0, len(s.st.meterPoints))
	for _, mp := range s.st.meterPoints {
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Meters returns committed meters ordered by ID.
func (s *Store) Meters() []core.Meter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Meter, 0, len(s.st.meters))
	for _, m := range s.st.meters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Readings returns committed readings ordered by ID.
func (s *Store) Readings() []core.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Reading, 0, len(s.st.readings))
	for _, r := range s.st.readings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts is the number of committed rows per table.
type Counts struct {
	MeterPoints int
	Meters      int
	Readings    int
	FlowFiles   int
}

// Counts returns committed row counts.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counts{
		MeterPoints: len(s.st.meterPoints),
		Meters:      len(s.st.meters),
		Readings:    len(s.st.readings),
		FlowFiles:   len(s.st.flowFiles),
	}
}
