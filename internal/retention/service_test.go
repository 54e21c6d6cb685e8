package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/session"
)

type recordingPruner struct {
	cutoff time.Time
	calls  int
}

func (p *recordingPruner) Prune(cutoff time.Time, _ func(string) bool) (int, error) {
	p.cutoff = cutoff
	p.calls++
	return 0, nil
}

func TestNewService_InvalidSchedule(t *testing.T) {
	_, err := NewService(&recordingPruner{}, time.Hour, "not a schedule", nil)
	assert.Error(t, err)
}

func TestNext_Daily(t *testing.T) {
	svc, err := NewService(&recordingPruner{}, time.Hour, "", nil)
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 15, 30, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local), svc.Next(from))
}

func TestRunOnce_Cutoff(t *testing.T) {
	p := &recordingPruner{}
	svc, err := NewService(p, 30*24*time.Hour, "@daily", nil)
	require.NoError(t, err)
	now := time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err = svc.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), p.cutoff)
}

func TestDisabled(t *testing.T) {
	p := &recordingPruner{}
	svc, err := NewService(p, 0, "", nil)
	require.NoError(t, err)

	assert.False(t, svc.Enabled())
	n, err := svc.RunOnce()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, p.calls)
	assert.NoError(t, svc.Start(context.Background()))
}

func TestRunOnce_SkipsBusySessions(t *testing.T) {
	mgr, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"cli:idle", "cli:busy"} {
		s := mgr.GetOrCreate(key)
		s.AppendUser("hello", nil)
		require.NoError(t, mgr.Save(s))
	}

	svc, err := NewService(mgr, 24*time.Hour, "", func(key string) bool { return key == "cli:busy" })
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(72 * time.Hour) }

	n, err := svc.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var keys []string
	for _, info := range mgr.List() {
		keys = append(keys, info.Key)
	}
	assert.Equal(t, []string{"cli:busy"}, keys)
}

func TestStart_StopsOnCancel(t *testing.T) {
	svc, err := NewService(&recordingPruner{}, time.Hour, "@hourly", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
