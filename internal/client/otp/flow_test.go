package otp

import (
	"testing"
	"time"

	"storefront/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFlow() (*Flow, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
	return NewFlow(WithClock(clock.Now), WithResendCooldown(30*time.Second)), clock
}

func TestSignupChallengeResolvesToIdle(t *testing.T) {
	f, clock := newTestFlow()
	assert.Equal(t, Idle, f.Snapshot().State)

	ch := f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")
	assert.Equal(t, clock.t, ch.IssuedAt)
	assert.Equal(t, Challenged, f.Snapshot().State)

	got, err := f.StartVerify()
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, Verifying, f.Snapshot().State)

	snap := f.Resolve("")
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Challenge)
}

func TestWrongCodeCountsAttempts(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")

	for i := 1; i <= 7; i++ {
		_, err := f.StartVerify()
		require.NoError(t, err, "attempts are never locked out")
		assert.Equal(t, i, f.Fail())
	}

	snap := f.Snapshot()
	assert.Equal(t, Challenged, snap.State)
	assert.Equal(t, 7, snap.Challenge.Attempts)
}

func TestInterruptDoesNotCountAttempt(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")

	_, err := f.StartVerify()
	require.NoError(t, err)
	f.Interrupt()

	snap := f.Snapshot()
	assert.Equal(t, Challenged, snap.State)
	assert.Zero(t, snap.Challenge.Attempts)
}

func TestVerifyRequiresChallenge(t *testing.T) {
	f, _ := newTestFlow()

	_, err := f.StartVerify()
	assert.ErrorIs(t, err, ErrNoChallenge)

	f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")
	_, err = f.StartVerify()
	require.NoError(t, err)
	_, err = f.StartVerify()
	assert.ErrorIs(t, err, ErrVerifying)
}

func TestPasswordResetNestedState(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposePasswordReset, "ann@example.com", "user-1")

	_, err := f.ResetToken()
	assert.ErrorIs(t, err, ErrNotAwaitingReset)

	_, err = f.StartVerify()
	require.NoError(t, err)
	snap := f.Resolve("reset-token")

	assert.Equal(t, AwaitingPassword, snap.State)
	require.NotNil(t, snap.Challenge, "challenge is kept until the password is set")

	tok, err := f.ResetToken()
	require.NoError(t, err)
	assert.Equal(t, "reset-token", tok)

	require.NoError(t, f.CompleteReset())
	assert.Equal(t, Idle, f.Snapshot().State)
	assert.ErrorIs(t, f.CompleteReset(), ErrNotAwaitingReset)
}

func TestBeginReplacesChallenge(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposePasswordReset, "ann@example.com", "user-1")
	_, _ = f.StartVerify()
	f.Fail()

	f.Begin(auth.PurposeMobileVerification, "9876543210", "user-1")

	snap := f.Snapshot()
	assert.Equal(t, Challenged, snap.State)
	assert.Equal(t, auth.PurposeMobileVerification, snap.Challenge.Purpose)
	assert.Zero(t, snap.Challenge.Attempts)
}

func TestResendCooldown(t *testing.T) {
	f, clock := newTestFlow()

	ok, _ := f.CanResend()
	assert.False(t, ok)
	assert.ErrorIs(t, f.MarkResent(), ErrNoChallenge)

	first := f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")
	_, _ = f.StartVerify()
	f.Fail()

	ok, wait := f.CanResend()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)
	assert.ErrorIs(t, f.MarkResent(), ErrResendCooldown)

	clock.Advance(31 * time.Second)
	ok, _ = f.CanResend()
	assert.True(t, ok)
	require.NoError(t, f.MarkResent())

	snap := f.Snapshot()
	assert.Equal(t, first.IssuedAt, snap.Challenge.IssuedAt, "resend keeps the same challenge")
	assert.Equal(t, 1, snap.Challenge.Attempts)
	assert.Equal(t, clock.t.Add(30*time.Second), snap.Challenge.ResendAvailableAt)

	ok, _ = f.CanResend()
	assert.False(t, ok)
}

func TestCancelClearsEverything(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposePasswordReset, "ann@example.com", "user-1")
	_, _ = f.StartVerify()
	f.Resolve("reset-token")

	f.Cancel()

	snap := f.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Challenge)
	_, err := f.ResetToken()
	assert.ErrorIs(t, err, ErrNotAwaitingReset)
}

func TestSnapshotIsCopy(t *testing.T) {
	f, _ := newTestFlow()
	f.Begin(auth.PurposeSignupVerification, "ann@example.com", "user-1")

	snap := f.Snapshot()
	snap.Challenge.Attempts = 99

	assert.Zero(t, f.Snapshot().Challenge.Attempts)
}
