package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/flowimport/internal/d0010"
	"github.com/JonMunkholm/flowimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxFileSize is the largest file the importer will read.
const DefaultMaxFileSize int64 = 100 << 20

// Service imports D0010 flow files into a Store.
type Service struct {
	store       Store
	parser      *d0010.Parser
	metrics     *Metrics
	maxFileSize int64
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithParser replaces the default strict, UK-time parser.
func WithParser(p *d0010.Parser) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithMetrics records per-file outcomes in m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxFileSize rejects files larger than n bytes. Non-positive n keeps the
// default.
func WithMaxFileSize(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithClock sets the clock used for FlowFile.ImportedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an importer over store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		parser:      d0010.NewParser(),
		maxFileSize: DefaultMaxFileSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// FileResult is the outcome of importing one file.
type FileResult struct {
	Path     string
	Filename string // base name, the duplicate-detection key
	DryRun   bool

	Parsed   int // readings in the file
	Imported int // readings newly created (0 for a dry run)

	FlowFile *FlowFile // nil for dry runs and failures
	Duration time.Duration
	Err      error
}

// OK reports whether the file succeeded.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Count is the number reported for a successful file: readings created, or
// readings parsed for a dry run.
func (r FileResult) Count() int {
	if r.DryRun {
		return r.Parsed
	}
	return r.Imported
}

// ImportFile imports the file at path. The steps run in order and stop at the
// first failure:
//
//  1. the path must exist (*NotFoundError) and be a regular file within the
//     size limit (*FileError)
//  2. its base name must not have been imported before (*DuplicateError)
//  3. it must parse (*FileError wrapping the d0010 error)
//  4. unless dryRun, every row is written in one transaction (*StorageError
//     on failure, with nothing kept)
//
// The returned FileResult is populated in both cases; its Err equals the
// returned error.
func (s *Service) ImportFile(ctx context.Context, path string, dryRun bool) (FileResult, error) {
	start := time.Now()
	res := FileResult{
		Path:     path,
		Filename: filepath.Base(path),
		DryRun:   dryRun,
	}

	logger := logging.WithFields(ctx,
		"run_id", RunIDFromContext(ctx),
		"file", res.Filename,
		"dry_run", dryRun,
	)

	err := s.importFile(ctx, &res)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		s.metrics.observeFile(OutcomeFailed, res.Parsed, 0, res.Duration)
		logger.Warn("file import failed",
			"error", err,
			"code", MapError(err).Code,
			"user_message", FormatUserError(err),
		)
		return res, err
	}

	outcome := OutcomeImported
	if dryRun {
		outcome = OutcomeDryRun
	}
	s.metrics.observeFile(outcome, res.Parsed, res.Imported, res.Duration)

	logger.Info("file imported",
		"parsed", res.Parsed,
		"imported", res.Imported,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

func (s *Service) importFile(ctx context.Context, res *FileResult) error {
	if err := s.checkFile(res.Path); err != nil {
		return err
	}

	exists, err := s.store.FlowFileExists(ctx, res.Filename)
	if err != nil {
		return storageError("check flow file", err)
	}
	if exists {
		return &DuplicateError{Filename: res.Filename}
	}

	parsed, err := s.parseFile(res.Path)
	if err != nil {
		return err
	}
	res.Parsed = len(parsed.Readings)

	if res.DryRun {
		return nil
	}

	flowFile, err := s.write(ctx, res.Filename, parsed)
	if err != nil {
		return err
	}
	res.Imported = flowFile.RecordCount
	res.FlowFile = &flowFile

	return nil
}

func (s *Service) checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{Path: path}
	}
	if err != nil {
		return &FileError{Path: path, Err: err}
	}

	if !info.Mode().IsRegular() {
		return &FileError{Path: path, Err: ErrNotRegularFile}
	}
	if info.Size() > s.maxFileSize {
		return &FileError{Path: path, Err: ErrFileTooLarge}
	}

	return nil
}

func (s *Service) parseFile(path string) (*d0010.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	parsed, err := s.parser.Parse(f)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return parsed, nil
}

type meterKey struct {
	meterPointID int64
	serial       string
}

// write stores one parsed file in a single transaction and returns the
// FlowFile with its final record count.
func (s *Service) write(ctx context.Context, filename string, file *d0010.File) (FlowFile, error) {
	var flowFile FlowFile

	err := s.store.WithTx(ctx, func(tx Tx) error {
		ff, err := tx.CreateFlowFile(ctx, FlowFile{
			ID:            uuid.New(),
			Filename:      filename,
			FileReference: file.FileReference(),
			ImportedAt:    s.now().UTC(),
		})
		if err != nil {
			return storageError("create flow file", err)
		}

		meterPoints := make(map[string]int64)
		meters := make(map[meterKey]int64)
		imported := 0

		for _, r := range file.Readings {
			mpID, ok := meterPoints[r.MPAN]
			if !ok {
				mp, _, err := tx.GetOrCreateMeterPoint(ctx, r.MPAN)
				if err != nil {
					return storageError("get or create meter point", err)
				}
				mpID = mp.ID
				meterPoints[r.MPAN] = mpID
			}

			key := meterKey{meterPointID: mpID, serial: r.MeterSerial}
			meterID, ok := meters[key]
			if !ok {
				m, _, err := tx.GetOrCreateMeter(ctx, mpID, r.MeterSerial, r.MeterType)
				if err != nil {
					return storageError("get or create meter", err)
				}
				meterID = m.ID
				meters[key] = meterID
			}

			_, created, err := tx.GetOrCreateReading(ctx, Reading{
				MeterID:     meterID,
				RegisterID:  r.RegisterID,
				ReadingDate: r.ReadingDate,
				Value:       r.Value,
				ReadingType: r.ReadingType,
				FlowFileID:  ff.ID,
			})
			if err != nil {
				return storageError("get or create reading", err)
			}
			if created {
				imported++
			}
		}

		if err := tx.SetFlowFileRecordCount(ctx, ff.ID, imported); err != nil {
			return storageError("set record count", err)
		}

		ff.RecordCount = imported
		flowFile = ff
		return nil
	})
	if err != nil {
		return FlowFile{}, storageError("import transaction", err)
	}

	return flowFile, nil
}

// storageError wraps err as a *StorageError unless it already is one or is a
// *DuplicateError raised by the filename constraint.
func storageError(op string, err error) error {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	return &StorageError{Op: op, Err: err}
}
