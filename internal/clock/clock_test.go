package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)

	require.NoError(t, m.Sleep(context.Background(), 250*time.Millisecond))
	m.Advance(time.Second)

	assert.Equal(t, start.Add(1250*time.Millisecond), m.Now())
	assert.Equal(t, 250*time.Millisecond, m.Slept())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewMock(time.Time{}).Sleep(ctx, time.Second), context.Canceled)
	assert.ErrorIs(t, New().Sleep(ctx, time.Hour), context.Canceled)
}
