package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/rebuild"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls atomic.Int64
	st    rebuild.Status
}

func (f *fakeSource) Status() rebuild.Status {
	f.calls.Add(1)
	return f.st
}

func newSource() *fakeSource {
	return &fakeSource{st: rebuild.Status{
		State:       rebuild.Idle,
		Tick:        42,
		ChainID:     3,
		Links:       60,
		Constraints: 60,
		Perimeter:   119.9,
		Pending:     1,
		Rebuilds:    3,
		Failures:    1,
		LastOutcome: core.OutcomeBuilt,
	}}
}

func TestSnapshot(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(Dependencies{Controller: newSource()})
	svc.now = func() time.Time { return fixed }

	r := svc.Snapshot()
	assert.Equal(t, fixed, r.Time)
	assert.Equal(t, "idle", r.State)
	assert.Equal(t, uint64(42), r.Tick)
	assert.Equal(t, 60, r.Links)
	assert.Equal(t, "built", r.LastOutcome)
	assert.Empty(t, r.LastError)
}

func TestReport_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{Controller: newSource(), StatusFile: path})

	_, err := svc.Report()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(3), got.ChainID)
	assert.Equal(t, int64(1), got.Failures)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReport_BadStatusDir(t *testing.T) {
	svc := NewService(Dependencies{Controller: newSource(), StatusFile: "/nonexistent/dir/status.json"})
	_, err := svc.Report()
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	src := newSource()
	svc := NewService(Dependencies{Controller: src, Interval: 5 * time.Millisecond})

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestStart_RequiresController(t *testing.T) {
	svc := NewService(Dependencies{})
	assert.Error(t, svc.Start())
}

func TestNewService_DefaultInterval(t *testing.T) {
	svc := NewService(Dependencies{Controller: newSource()})
	assert.Equal(t, time.Second, svc.deps.Interval)
}
