package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func testPolicy(clock Clock) RetryPolicy {
	p := DefaultRetryPolicy()
	p.Clock = clock
	return p
}

// failures returns fn that fails with errs in order, then succeeds
func failures(calls *int, errs ...error) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}
		return nil
	}
}

func TestRetryPolicyRecoversFromTransientErrors(t *testing.T) {
	clock := &fakeClock{}
	calls := 0

	err := testPolicy(clock).Do(context.Background(), failures(&calls,
		&HTTPError{StatusCode: 503},
		fmt.Errorf("sending request: %w", timeoutErr{}),
	))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.sleeps)
}

func TestRetryPolicyExhaustion(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	rateLimited := &HTTPError{StatusCode: 429}

	err := testPolicy(clock).Do(context.Background(), failures(&calls, rateLimited, rateLimited, rateLimited, rateLimited))

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 429, httpErr.StatusCode)
	assert.Equal(t, 3, calls)
	assert.Len(t, clock.sleeps, 2)
}

func TestRetryPolicyPermanentErrorsFailFast(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad request", &HTTPError{StatusCode: 400}},
		{"unauthorized", &HTTPError{StatusCode: 401}},
		{"malformed json", fmt.Errorf("%w: unexpected token", ErrMalformedResponse)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{}
			calls := 0
			err := testPolicy(clock).Do(context.Background(), failures(&calls, tt.err, tt.err))

			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, clock.sleeps)
		})
	}
}

func TestRetryPolicyHonorsRetryAfter(t *testing.T) {
	clock := &fakeClock{}
	calls := 0

	err := testPolicy(clock).Do(context.Background(), failures(&calls, &HTTPError{StatusCode: 429, RetryAfter: 7 * time.Second}))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, clock.sleeps)
}

func TestRetryPolicyStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := testPolicy(&fakeClock{}).Do(ctx, failures(&calls, &HTTPError{StatusCode: 500}, &HTTPError{StatusCode: 500}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyDelayIsBounded(t *testing.T) {
	p := RetryPolicy{BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Second, p.Delay(3))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&HTTPError{StatusCode: 429}))
	assert.True(t, IsTransient(&HTTPError{StatusCode: 502}))
	assert.False(t, IsTransient(&HTTPError{StatusCode: 404}))
	assert.False(t, IsTransient(ErrMalformedResponse))
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", timeoutErr{})))
}
