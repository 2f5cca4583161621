// Package flatfile persists the identity/trip graph to three delimited flat
// files (drivers, passengers, trips) and rebuilds it on load.
//
// Go Learning Note - Atomic Replacement:
// Each file is written to a temporary sibling and then renamed over the live
// file. On POSIX systems rename within one directory is atomic, so a reader
// sees either the old file or the new one, never a half-written one. A save
// that fails midway leaves the previous file in place, and the backup taken
// just before the save is a second line of defense.
package flatfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"carpool/internal/config"
	"carpool/internal/domain/entities"
	"carpool/pkg/utils"
)

// Base names of the three live files; each is stored as <base>.csv.
const (
	DriversBase    = "drivers"
	PassengersBase = "passengers"
	TripsBase      = "trips"

	fileExt = ".csv"
	bom     = "\uFEFF"
)

var entityBases = []string{DriversBase, PassengersBase, TripsBase}

// StoreReadError describes one record that could not be loaded. It is never
// fatal: the record is skipped and loading continues.
type StoreReadError struct {
	File  string
	Line  int
	Cause error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Cause)
}

func (e *StoreReadError) Unwrap() error {
	return e.Cause
}

// StoreWriteError is returned when a save could not complete. The live file
// at Path is left as it was before the attempt.
type StoreWriteError struct {
	Path  string
	Cause error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Cause)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Cause
}

// Warning is a reference or invariant problem that was repaired during load
// without skipping the record.
type Warning struct {
	File    string
	Line    int
	Message string
}

// LoadReport accumulates the per-record outcome of a load.
type LoadReport struct {
	Skipped  []*StoreReadError
	Warnings []Warning
}

// SkippedCount is the number of records dropped because they were malformed.
func (r *LoadReport) SkippedCount() int {
	return len(r.Skipped)
}

// Store reads and writes the flat files under one data directory.
type Store struct {
	dataDir    string
	backupDir  string
	maxBackups int
	delim      rune
	log        *logrus.Logger
	now        func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, which names and dates backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDelimiter changes the field separator of the live files.
func WithDelimiter(delim rune) Option {
	return func(s *Store) { s.delim = delim }
}

func New(cfg config.StoreConfig, log *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		dataDir:    cfg.DataDir,
		backupDir:  cfg.BackupDir,
		maxBackups: cfg.MaxBackups,
		delim:      DefaultDelimiter,
		log:        log,
		now:        time.Now,
	}
	if s.backupDir == "" {
		s.backupDir = filepath.Join(s.dataDir, "backups")
	}
	if s.maxBackups < 1 {
		s.maxBackups = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the live file for an entity base name.
func (s *Store) Path(base string) string {
	return filepath.Join(s.dataDir, base+fileExt)
}

// Load reads drivers and passengers, then trips, resolving trip references
// against the identities just read. A missing file yields an empty
// collection. Only I/O failures other than a missing file return an error.
func (s *Store) Load(ctx context.Context) (*entities.Graph, *LoadReport, error) {
	g := &entities.Graph{}
	report := &LoadReport{}

	err := s.readFile(DriversBase, report, func(fields []string, line int) error {
		d, err := decodeDriver(fields)
		if err != nil {
			return err
		}
		g.Drivers = append(g.Drivers, d)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = s.readFile(PassengersBase, report, func(fields []string, line int) error {
		p, err := decodePassenger(fields)
		if err != nil {
			return err
		}
		g.Passengers = append(g.Passengers, p)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	g.Drivers, g.Passengers = s.dropDuplicateIDs(g.Drivers, g.Passengers, report)
	idx := newIdentityIndex(g.Drivers, g.Passengers)

	err = s.readFile(TripsBase, report, func(fields []string, line int) error {
		decoded, err := decodeTrip(fields, idx)
		if err != nil {
			return err
		}
		decoded.state.ID = utils.GenerateTripID()
		trip, warnings, err := entities.RestoreTrip(decoded.state)
		if err != nil {
			return err
		}
		for _, msg := range append(decoded.warnings, warnings...) {
			s.warn(report, TripsBase, line, msg)
		}
		g.Trips = append(g.Trips, trip)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"drivers":    len(g.Drivers),
		"passengers": len(g.Passengers),
		"trips":      len(g.Trips),
		"skipped":    report.SkippedCount(),
		"warnings":   len(report.Warnings),
	}).Info("store loaded")
	return g, report, nil
}

// readFile feeds every data record of one file to decode. Malformed records
// are logged and recorded in the report; the header line is skipped.
func (s *Store) readFile(base string, report *LoadReport, decode func(fields []string, line int) error) error {
	path := s.Path(base)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.WithField("file", path).Debug("store file missing, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rr := newRecordReader(f, s.delim)
	first := true
	for {
		record, line, err := rr.next()
		switch {
		case err == io.EOF:
			return nil
		case errors.Is(err, errUnterminatedQuote):
			s.skip(report, base, line, err)
			continue
		case err != nil:
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if first {
			first = false
			record = strings.TrimPrefix(record, bom)
			if isHeader(record, base, s.delim) {
				continue
			}
		}
		if record == "" {
			continue
		}
		fields, err := SplitRecord(record, s.delim)
		if err == nil {
			err = decode(fields, line)
		}
		if err != nil {
			// A quote that opened a field by mistake can pull later lines
			// into this record. Only its first line is rejected.
			rr.rewind()
			s.skip(report, base, line, err)
		}
	}
}

func isHeader(record, base string, delim rune) bool {
	fields, err := SplitRecord(record, delim)
	if err != nil || len(fields) == 0 {
		return false
	}
	switch base {
	case TripsBase:
		return fields[0] == tripColumns[0]
	default:
		return fields[0] == driverColumns[0]
	}
}

// dropDuplicateIDs keeps the first identity registered under each national
// ID across both files.
func (s *Store) dropDuplicateIDs(drivers []*entities.Driver, passengers []*entities.Passenger, report *LoadReport) ([]*entities.Driver, []*entities.Passenger) {
	seen := make(map[string]bool)
	var keptDrivers []*entities.Driver
	for _, d := range drivers {
		if seen[d.NationalID] {
			s.skip(report, DriversBase, 0, fmt.Errorf("%w: %s", entities.ErrDuplicateIdentity, d.NationalID))
			continue
		}
		seen[d.NationalID] = true
		keptDrivers = append(keptDrivers, d)
	}
	var keptPassengers []*entities.Passenger
	for _, p := range passengers {
		if seen[p.NationalID] {
			s.skip(report, PassengersBase, 0, fmt.Errorf("%w: %s", entities.ErrDuplicateIdentity, p.NationalID))
			continue
		}
		seen[p.NationalID] = true
		keptPassengers = append(keptPassengers, p)
	}
	return keptDrivers, keptPassengers
}

func (s *Store) skip(report *LoadReport, base string, line int, cause error) {
	rerr := &StoreReadError{File: base + fileExt, Line: line, Cause: cause}
	report.Skipped = append(report.Skipped, rerr)
	s.log.WithFields(logrus.Fields{
		"file":  rerr.File,
		"line":  line,
		"error": cause,
	}).Warn("skipping malformed record")
}

func (s *Store) warn(report *LoadReport, base string, line int, msg string) {
	w := Warning{File: base + fileExt, Line: line, Message: msg}
	report.Warnings = append(report.Warnings, w)
	s.log.WithFields(logrus.Fields{
		"file": w.File,
		"line": line,
	}).Warn(msg)
}

// Save backs up the live files, then rewrites each one atomically. The
// first failing file stops the save and is returned as a *StoreWriteError;
// files already written keep their new content.
func (s *Store) Save(ctx context.Context, g *entities.Graph) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return s.writeFailed(s.dataDir, err)
	}
	if err := s.Backup(); err != nil {
		s.log.WithError(err).Warn("backup before save failed, saving anyway")
	}

	files := []struct {
		base    string
		columns []string
		rows    func(emit func([]string) error) error
	}{
		{DriversBase, driverColumns, func(emit func([]string) error) error {
			for _, d := range g.Drivers {
				if err := emit(encodeDriver(d)); err != nil {
					return err
				}
			}
			return nil
		}},
		{PassengersBase, passengerColumns, func(emit func([]string) error) error {
			for _, p := range g.Passengers {
				if err := emit(encodePassenger(p)); err != nil {
					return err
				}
			}
			return nil
		}},
		{TripsBase, tripColumns, func(emit func([]string) error) error {
			for _, t := range g.Trips {
				if err := emit(encodeTrip(t)); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	for _, file := range files {
		path := s.Path(file.base)
		err := writeAtomic(path, func(w *bufio.Writer) error {
			emit := func(fields []string) error {
				_, err := w.WriteString(JoinRecord(fields, s.delim) + "\n")
				return err
			}
			if err := emit(file.columns); err != nil {
				return err
			}
			return file.rows(emit)
		})
		if err != nil {
			return s.writeFailed(path, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"drivers":    len(g.Drivers),
		"passengers": len(g.Passengers),
		"trips":      len(g.Trips),
	}).Info("store saved")
	return nil
}

func (s *Store) writeFailed(path string, err error) error {
	werr := &StoreWriteError{Path: path, Cause: err}
	s.log.WithError(err).WithField("file", path).Error("store write failed")
	return werr
}

// writeAtomic writes through a temporary file in the target directory and
// renames it over path once everything has been flushed to disk.
func writeAtomic(path string, write func(w *bufio.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = write(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
