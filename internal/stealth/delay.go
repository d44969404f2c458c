package stealth

import (
	"context"
	"time"
)

// DelayProfile names a courtesy delay between site visits.
type DelayProfile string

const (
	ProfileNormal DelayProfile = "normal"
	ProfileFast   DelayProfile = "fast"
)

// Default intervals for each profile.
const (
	NormalInterval = 2 * time.Second
	FastInterval   = 500 * time.Millisecond
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoSleep returns immediately. Tests use it to skip the courtesy delay.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// CourtesyDelay is the fixed pause taken after each site, successful or not.
// It rate-limits outbound traffic and is never a retry backoff.
type CourtesyDelay struct {
	Interval time.Duration
	sleep    SleepFunc
}

// NewCourtesyDelay returns a delay for the given profile.
func NewCourtesyDelay(profile DelayProfile) *CourtesyDelay {
	switch profile {
	case ProfileFast:
		return &CourtesyDelay{Interval: FastInterval}
	default:
		return &CourtesyDelay{Interval: NormalInterval}
	}
}

// WithSleep swaps the sleep implementation.
func (c *CourtesyDelay) WithSleep(fn SleepFunc) *CourtesyDelay {
	c.sleep = fn
	return c
}

// Wait pauses for the configured interval.
func (c *CourtesyDelay) Wait(ctx context.Context) error {
	return c.WaitFor(ctx, c.Interval)
}

// WaitFor pauses for d instead of the configured interval.
func (c *CourtesyDelay) WaitFor(ctx context.Context, d time.Duration) error {
	sleep := c.sleep
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, d)
}
