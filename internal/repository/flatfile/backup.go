package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// backupLayout is the timestamp embedded in backup names, e.g.
// trips_20240131_154500.csv.
const backupLayout = "20060102_150405"

// ErrNoBackup is returned by RestoreFromBackup when no entity has a backup.
var ErrNoBackup = errors.New("no backup available")

type backupFile struct {
	name    string
	stamp   string
	seq     int
	modTime time.Time
}

// BackupName returns the backup file name for base at t.
func BackupName(base string, t time.Time) string {
	return backupName(base, t, 0)
}

// backupName adds a sequence suffix for the second and later backups taken
// within the same second: trips_20240131_154500_1.csv.
func backupName(base string, t time.Time, seq int) string {
	if seq == 0 {
		return base + "_" + t.Format(backupLayout) + fileExt
	}
	return base + "_" + t.Format(backupLayout) + "_" + strconv.Itoa(seq) + fileExt
}

// Backup copies every existing live file into the backup directory and prunes
// each entity down to the newest maxBackups copies. Missing live files are
// not an error.
func (s *Store) Backup() error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	now := s.now()
	var errs []error
	for _, base := range entityBases {
		src := s.Path(base)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		dst, err := s.copyToBackup(src, base, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("backing up %s: %w", base, err))
			continue
		}
		// The mtime orders pruning, so pin it to the store clock.
		if err := os.Chtimes(dst, now, now); err != nil {
			errs = append(errs, err)
		}
		if err := s.prune(base); err != nil {
			errs = append(errs, err)
		}
		s.log.WithField("file", dst).Debug("backup written")
	}
	return errors.Join(errs...)
}

// backups lists the backups of base, newest first. Equal mtimes fall back to
// the timestamp in the name, then to its sequence suffix.
func (s *Store) backups(base string) ([]backupFile, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `_(\d{8}_\d{6})(?:_(\d+))?` + regexp.QuoteMeta(fileExt) + `$`)

	var out []backupFile
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		f := backupFile{name: e.Name(), stamp: m[1], modTime: info.ModTime()}
		if m[2] != "" {
			f.seq, _ = strconv.Atoi(m[2])
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case !a.modTime.Equal(b.modTime):
			return a.modTime.After(b.modTime)
		case a.stamp != b.stamp:
			return a.stamp > b.stamp
		default:
			return a.seq > b.seq
		}
	})
	return out, nil
}

func (s *Store) prune(base string) error {
	files, err := s.backups(base)
	if err != nil {
		return err
	}
	var errs []error
	for i := s.maxBackups; i < len(files); i++ {
		path := filepath.Join(s.backupDir, files[i].name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.log.WithField("file", path).Debug("old backup pruned")
	}
	return errors.Join(errs...)
}

// Backups returns the backup file names of base, newest first.
func (s *Store) Backups(base string) ([]string, error) {
	files, err := s.backups(base)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// RestoreFromBackup replaces each live file with its newest backup. The live
// files are backed up first, so a restore can itself be undone. It returns
// the backups that were restored, or ErrNoBackup when there were none.
// Entities without a backup keep their live file.
func (s *Store) RestoreFromBackup() ([]string, error) {
	type restore struct {
		name    string
		content []byte
	}
	// Sources are read before the live files are backed up, because that
	// backup becomes the newest one and may prune the source.
	sources := make(map[string]restore)
	for _, base := range entityBases {
		files, err := s.backups(base)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.backupDir, files[0].name))
		if err != nil {
			return nil, fmt.Errorf("reading backup %s: %w", files[0].name, err)
		}
		sources[base] = restore{name: files[0].name, content: content}
	}
	if len(sources) == 0 {
		return nil, ErrNoBackup
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, s.writeFailed(s.dataDir, err)
	}
	if err := s.Backup(); err != nil {
		return nil, fmt.Errorf("backing up live files before restore: %w", err)
	}

	var restored []string
	for _, base := range entityBases {
		src, ok := sources[base]
		if !ok {
			continue
		}
		dst := s.Path(base)
		err := writeAtomic(dst, func(w *bufio.Writer) error {
			_, err := w.Write(src.content)
			return err
		})
		if err != nil {
			return restored, s.writeFailed(dst, err)
		}
		restored = append(restored, src.name)
		s.log.WithFields(logrus.Fields{"from": src.name, "to": dst}).Info("restored from backup")
	}
	return restored, nil
}

// copyToBackup copies src into a new backup file for base, picking the next
// free sequence suffix when a backup with the same timestamp exists.
func (s *Store) copyToBackup(src, base string, now time.Time) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	for seq := 0; ; seq++ {
		dst := filepath.Join(s.backupDir, backupName(base, now, seq))
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return "", err
		}
		return dst, out.Close()
	}
}
