package cronjob

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) RefreshExchangeRates(ctx context.Context) error {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh without deadline")
	}
	return r.err
}

func TestScheduler_RunsRefresh(t *testing.T) {
	r := &countingRefresher{}
	s := NewScheduler(r, "* * * * * *")
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RefreshErrorIsLogged(t *testing.T) {
	r := &countingRefresher{err: errors.New("db down")}
	s := NewScheduler(r, "")
	assert.Equal(t, DefaultSchedule, s.schedule)

	s.runNightlyRefresh()
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "every night")
	assert.Error(t, s.Start())
}
