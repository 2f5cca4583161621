package flatfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/config"
	"carpool/internal/domain/entities"
	"carpool/internal/logging"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func setupClockedStore(t *testing.T) (*Store, *stepClock) {
	t.Helper()
	dir := t.TempDir()
	clock := &stepClock{now: fixedNow}
	cfg := config.StoreConfig{DataDir: dir, BackupDir: filepath.Join(dir, "backups"), MaxBackups: 5}
	return New(cfg, logging.Discard(), WithClock(clock.Now)), clock
}

func TestBackupName(t *testing.T) {
	assert.Equal(t, "trips_20240301_093000.csv", BackupName(TripsBase, fixedNow))
}

func TestStore_BackupSkipsMissingLiveFiles(t *testing.T) {
	s, _ := setupClockedStore(t)
	writeFile(t, s, TripsBase, tripHeader)

	require.NoError(t, s.Backup())

	trips, err := s.Backups(TripsBase)
	require.NoError(t, err)
	assert.Equal(t, []string{"trips_20240301_093000.csv"}, trips)

	drivers, err := s.Backups(DriversBase)
	require.NoError(t, err)
	assert.Empty(t, drivers)
}

func TestStore_BackupPrunesToFiveNewest(t *testing.T) {
	s, clock := setupClockedStore(t)
	writeFile(t, s, PassengersBase, passengerHeader)

	var want []string
	for i := range 7 {
		require.NoError(t, s.Backup())
		if i >= 2 {
			want = append([]string{BackupName(PassengersBase, clock.now)}, want...)
		}
		clock.advance(time.Minute)
	}

	got, err := s.Backups(PassengersBase)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Unrelated files in the backup directory are never pruned.
	other := filepath.Join(s.backupDir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))
	require.NoError(t, s.Backup())
	assert.FileExists(t, other)
}

func TestStore_SaveTakesBackupOfPreviousContent(t *testing.T) {
	s, clock := setupClockedStore(t)
	ctx := context.Background()
	first := sampleGraph(t)
	require.NoError(t, s.Save(ctx, first))

	clock.advance(time.Hour)
	require.NoError(t, s.Save(ctx, &entities.Graph{}))

	backups, err := s.Backups(DriversBase)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	restored, err := s.RestoreFromBackup()
	require.NoError(t, err)
	assert.Len(t, restored, 3)

	g, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Drivers, 1)
	assert.Len(t, g.Passengers, 2)
	assert.Len(t, g.Trips, 1)
}

func TestStore_RestorePicksNewestBackup(t *testing.T) {
	s, clock := setupClockedStore(t)
	writeFile(t, s, PassengersBase, passengerHeader+"22222222;Old;Copy;;;;;;true\n")
	require.NoError(t, s.Backup())

	clock.advance(time.Second)
	writeFile(t, s, PassengersBase, passengerHeader+"22222222;New;Copy;;;;;;true\n")
	require.NoError(t, s.Backup())

	writeFile(t, s, PassengersBase, "garbage\n")
	restored, err := s.RestoreFromBackup()
	require.NoError(t, err)
	assert.Equal(t, []string{BackupName(PassengersBase, clock.now)}, restored)

	g, report, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.SkippedCount())
	require.Len(t, g.Passengers, 1)
	assert.Equal(t, "New", g.Passengers[0].Name)
}

func TestStore_RestoreWithoutBackups(t *testing.T) {
	s, _ := setupClockedStore(t)
	_, err := s.RestoreFromBackup()
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestStore_BackupsWithinOneSecondDoNotOverwrite(t *testing.T) {
	s, _ := setupClockedStore(t)
	for _, name := range []string{"First", "Second", "Third"} {
		writeFile(t, s, PassengersBase, passengerHeader+"22222222;"+name+";Copy;;;;;;true\n")
		require.NoError(t, s.Backup())
	}

	got, err := s.Backups(PassengersBase)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"passengers_20240301_093000_2.csv",
		"passengers_20240301_093000_1.csv",
		"passengers_20240301_093000.csv",
	}, got)

	oldest, err := os.ReadFile(filepath.Join(s.backupDir, got[2]))
	require.NoError(t, err)
	assert.Contains(t, string(oldest), "First")
	newest, err := os.ReadFile(filepath.Join(s.backupDir, got[0]))
	require.NoError(t, err)
	assert.Contains(t, string(newest), "Third")
}

func TestStore_RestoreBacksUpLiveFilesFirst(t *testing.T) {
	s, clock := setupClockedStore(t)
	writeFile(t, s, PassengersBase, passengerHeader+"22222222;Old;Copy;;;;;;true\n")
	require.NoError(t, s.Backup())

	clock.advance(time.Minute)
	writeFile(t, s, PassengersBase, passengerHeader+"22222222;Current;Copy;;;;;;true\n")
	restored, err := s.RestoreFromBackup()
	require.NoError(t, err)
	assert.Equal(t, []string{BackupName(PassengersBase, fixedNow)}, restored)

	g, _, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Passengers, 1)
	assert.Equal(t, "Old", g.Passengers[0].Name)

	backups, err := s.Backups(PassengersBase)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, BackupName(PassengersBase, clock.now), backups[0])
	kept, err := os.ReadFile(filepath.Join(s.backupDir, backups[0]))
	require.NoError(t, err)
	assert.Contains(t, string(kept), "Current", "the replaced live file survives as a backup")
}
