package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftbound/internal/testutil"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	err := s.Add(Job{Name: "bad", Spec: "not a spec", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	require.NoError(t, s.Add(Job{Name: "off", Spec: ""}))
	assert.Zero(t, s.Len())
}

func TestScheduledJobRuns(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(nil)
	require.NoError(t, s.Add(Job{Name: "tick", Spec: "@every 1s", Run: func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}}))
	assert.Equal(t, 1, s.Len())

	s.Start()
	defer s.Stop(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestDatabaseJobs(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	assert.NoError(t, Checkpoint(db)(ctx))
	assert.NoError(t, Optimize(db)(ctx))
}
