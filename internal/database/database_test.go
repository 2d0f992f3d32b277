package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "d"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", dsn)
}

func TestOpenSqliteInMemoryIsPrivate(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a, "drivetrain"))
	require.NoError(t, a.Create(&model.Rebuild{Tick: 1, Outcome: "built"}).Error)

	assert.False(t, b.Migrator().HasTable(&model.Rebuild{}))
}

func TestMigrateCreatesInfoOnce(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(db, "drivetrain"))
	require.NoError(t, Migrate(db, "drivetrain"))

	var infos []model.JournalInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "drivetrain", infos[0].ServiceName)
	assert.Equal(t, "sqlite", infos[0].Backend)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, "drivetrain"))
	require.NoError(t, db.Create(&model.Rebuild{Time: time.Now(), Tick: 3, Outcome: "built"}).Error)

	path := filepath.Join(t.TempDir(), "dumps", "journal.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.Rebuild{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDiskRejectsBadPath(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
	assert.Error(t, DumpMemoryDBToDisk(db, "/tmp/it's.db"))
}

func TestManagerFallsBackToSqlite(t *testing.T) {
	m := NewManager(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x"}, zerolog.Nop())

	require.NoError(t, m.Connect())
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Name())

	require.NoError(t, m.Setup("drivetrain"))
	assert.True(t, m.DB.Migrator().HasTable(&model.Rebuild{}))

	path := filepath.Join(t.TempDir(), "fallback.db")
	require.NoError(t, m.DumpMemoryToDisk(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	require.NoError(t, m.Close())
	assert.False(t, m.IsValid)
}

func TestManagerSetupWithoutConnect(t *testing.T) {
	m := NewManager(config.DBConfig{}, zerolog.Nop())
	assert.Error(t, m.Setup("drivetrain"))
	assert.NoError(t, m.Close())
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt", "db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)

	_, err = GetBackupDBPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
