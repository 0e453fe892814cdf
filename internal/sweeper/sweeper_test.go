package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/swapgrid/trust-engine/internal/patterns"
)

type countingReveals struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingReveals) SweepExpired(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, c.err
}

func (c *countingReveals) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
}

func (c *countingPurger) PurgeExpired(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 3, nil
}

func (c *countingPurger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type countingPatterns struct {
	countingPurger
	ringCalls int
	ringErr   error
}

func (c *countingPatterns) DetectRings(context.Context) ([]patterns.SuspiciousPattern, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ringCalls++
	return nil, c.ringErr
}

func TestRunOnce_RunsAllTasks(t *testing.T) {
	reveals := &countingReveals{}
	tracking := &countingPurger{}
	pats := &countingPatterns{}

	w := NewWorker(reveals, tracking, pats, time.Hour)
	w.RunOnce(context.Background())

	assert.Equal(t, 1, reveals.count())
	assert.Equal(t, 1, tracking.count())
	assert.Equal(t, 1, pats.count())
	assert.Equal(t, 1, pats.ringCalls)
}

func TestRunOnce_FailureDoesNotAbortRemainingTasks(t *testing.T) {
	reveals := &countingReveals{err: errors.New("db down")}
	tracking := &countingPurger{}
	pats := &countingPatterns{ringErr: errors.New("db down")}

	w := NewWorker(reveals, tracking, pats, time.Hour)
	w.RunOnce(context.Background())

	assert.Equal(t, 1, tracking.count())
	assert.Equal(t, 1, pats.count())
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	reveals := &countingReveals{}
	tracking := &countingPurger{}
	pats := &countingPatterns{}

	w := NewWorker(reveals, tracking, pats, time.Hour)
	w.Start(context.Background())

	assert.Eventually(t, func() bool {
		return reveals.count() == 1
	}, time.Second, 10*time.Millisecond)

	w.Stop()
	// No further passes after Stop.
	assert.Equal(t, 1, reveals.count())
}

func TestStart_TicksOnInterval(t *testing.T) {
	reveals := &countingReveals{}
	tracking := &countingPurger{}
	pats := &countingPatterns{}

	w := NewWorker(reveals, tracking, pats, 20*time.Millisecond)
	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return reveals.count() >= 3
	}, time.Second, 5*time.Millisecond)
}
