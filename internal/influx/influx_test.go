package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableConfig() config.InfluxConfig {
	return config.InfluxConfig{Enabled: true, Host: "127.0.0.1", Port: "1", Protocol: "http", Org: "drivetrain", Bucket: "chain_rebuilds"}
}

func sampleRecord() *core.RebuildRecord {
	return &core.RebuildRecord{
		Time:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Tick:      12,
		Trigger:   core.TriggerRadiusChanged,
		Coalesced: 1,
		Outcome:   core.OutcomeBuilt,
		ChainID:   3,
		Perimeter: 119.9,
		LinkCount: 60,
		Duration:  2 * time.Millisecond,
		Cogs: []core.CogProfile{
			{Role: core.FrontChainring, Radius: 5},
			{Role: core.RearCassette, Radius: 4.5},
		},
	}
}

func TestURL(t *testing.T) {
	m := NewManager(config.InfluxConfig{Protocol: "https", Host: "metrics", Port: "8086"}, zerolog.Nop(), "")
	assert.Equal(t, "https://metrics:8086", m.URL())
}

func TestConnectDisabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnectUnreachableWithoutBackup(t *testing.T) {
	m := NewManager(unreachableConfig(), zerolog.Nop(), "")
	t.Cleanup(func() { _ = m.Close() })

	assert.Error(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
}

func TestBackupWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(unreachableConfig(), zerolog.Nop(), path)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.WritePoint("chain_rebuilds", RebuildPoint(sampleRecord())))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	line := string(raw)
	assert.True(t, strings.HasPrefix(line, "chain_rebuild,outcome=built,trigger=radius_changed "), line)
	assert.Contains(t, line, "link_count=60i")
	assert.Contains(t, line, "rear_radius=4.5")
}

func TestWritePointWithoutWriter(t *testing.T) {
	m := NewManager(unreachableConfig(), zerolog.Nop(), "")
	assert.Error(t, m.WritePoint("chain_rebuilds", influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1)))
}

func TestRebuildPoint(t *testing.T) {
	rec := sampleRecord()
	rec.Error = "boom"
	point := RebuildPoint(rec)

	assert.Equal(t, MeasurementRebuild, point.Name())
	assert.Equal(t, rec.Time, point.Time())

	tags := map[string]string{}
	for _, tag := range point.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"outcome": "built", "trigger": "radius_changed"}, tags)

	fields := map[string]any{}
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, int64(12), fields["tick"])
	assert.Equal(t, int64(60), fields["link_count"])
	assert.Equal(t, 2.0, fields["duration_ms"])
	assert.Equal(t, 5.0, fields["front_radius"])
	assert.Equal(t, "boom", fields["error"])
}
