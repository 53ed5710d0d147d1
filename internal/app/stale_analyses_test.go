package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	calls  atomic.Int64
	marked int64
	err    error
}

func (f *fakeMarker) MarkStale(_ context.Context, _ time.Time, _ string) (int64, error) {
	f.calls.Add(1)
	return f.marked, f.err
}

func TestNewStaleAnalysisSweeper_Defaults(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewStaleAnalysisSweeper(nil, time.Minute, time.Minute))

	s := NewStaleAnalysisSweeper(&fakeMarker{}, 0, 0)
	require.NotNil(t, s)
	assert.Equal(t, 3*time.Minute, s.maxProcessingAge)
	assert.Equal(t, time.Minute, s.interval)
}

func TestStaleAnalysisSweeper_SweepsImmediately(t *testing.T) {
	t.Parallel()
	m := &fakeMarker{marked: 2}
	s := NewStaleAnalysisSweeper(m, time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
