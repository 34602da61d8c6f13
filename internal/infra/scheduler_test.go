package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls int
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) error {
	s.calls++
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return errors.New("sweep without deadline")
	}
	return s.err
}

func TestSweepSpecParses(t *testing.T) {
	_, err := cron.ParseStandard(SweepSpec)
	require.NoError(t, err)
}

func TestSweepCallsSweeperWithDeadline(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper)

	s.sweep()
	sweeper.err = errors.New("store down")
	s.sweep()

	assert.Equal(t, 2, sweeper.calls)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&countingSweeper{})
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
