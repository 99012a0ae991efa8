// Package otp tracks the one active out-of-band verification challenge.
package otp

import (
	"errors"
	"sync"
	"time"

	"storefront/internal/domain/auth"
)

const DefaultResendCooldown = 60 * time.Second

var (
	ErrNoChallenge      = errors.New("no verification in progress")
	ErrVerifying        = errors.New("a code is already being verified")
	ErrNotAwaitingReset = errors.New("no verified password reset in progress")
	ErrResendCooldown   = errors.New("please wait before requesting another code")
)

type State int

const (
	Idle State = iota
	Challenged
	Verifying
	// AwaitingPassword follows a verified password-reset code until the new password is set.
	AwaitingPassword
)

func (s State) String() string {
	switch s {
	case Challenged:
		return "challenged"
	case Verifying:
		return "verifying"
	case AwaitingPassword:
		return "awaiting_password"
	default:
		return "idle"
	}
}

type Challenge struct {
	UserID            string       `json:"user_id"`
	Contact           string       `json:"contact"`
	Purpose           auth.Purpose `json:"purpose"`
	IssuedAt          time.Time    `json:"issued_at"`
	Attempts          int          `json:"attempts"`
	ResendAvailableAt time.Time    `json:"resend_available_at"`
}

type Snapshot struct {
	State     State
	Challenge *Challenge
}

// Flow is held in memory only. Attempts are counted for display; lockout is
// left to the server.
type Flow struct {
	mu       sync.Mutex
	now      func() time.Time
	cooldown time.Duration

	state      State
	challenge  *Challenge
	resetToken string
}

type Option func(*Flow)

func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

func WithResendCooldown(d time.Duration) Option {
	return func(f *Flow) { f.cooldown = d }
}

func NewFlow(opts ...Option) *Flow {
	f := &Flow{now: time.Now, cooldown: DefaultResendCooldown}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Begin replaces any current challenge.
func (f *Flow) Begin(purpose auth.Purpose, contact, userID string) Challenge {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.challenge = &Challenge{
		UserID:            userID,
		Contact:           contact,
		Purpose:           purpose,
		IssuedAt:          now,
		ResendAvailableAt: now.Add(f.cooldown),
	}
	f.resetToken = ""
	f.state = Challenged
	return *f.challenge
}

// StartVerify moves Challenged to Verifying and returns the challenge being verified.
func (f *Flow) StartVerify() (Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case Challenged:
		f.state = Verifying
		return *f.challenge, nil
	case Verifying:
		return Challenge{}, ErrVerifying
	default:
		return Challenge{}, ErrNoChallenge
	}
}

// Fail records a rejected code and returns to Challenged.
func (f *Flow) Fail() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Verifying {
		return 0
	}
	f.challenge.Attempts++
	f.state = Challenged
	return f.challenge.Attempts
}

// Interrupt returns to Challenged without counting an attempt, for
// verifications that never reached the server.
func (f *Flow) Interrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == Verifying {
		f.state = Challenged
	}
}

// Resolve accepts the verified code. A password reset keeps its challenge and
// waits for the new password; every other purpose clears it.
func (f *Flow) Resolve(resetToken string) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Verifying {
		return f.snapshot()
	}
	if f.challenge.Purpose == auth.PurposePasswordReset {
		f.state = AwaitingPassword
		f.resetToken = resetToken
	} else {
		f.clear()
	}
	return f.snapshot()
}

// ResetToken returns the token proving the verified reset code.
func (f *Flow) ResetToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != AwaitingPassword {
		return "", ErrNotAwaitingReset
	}
	return f.resetToken, nil
}

func (f *Flow) CompleteReset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != AwaitingPassword {
		return ErrNotAwaitingReset
	}
	f.clear()
	return nil
}

func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clear()
}

// CanResend reports whether a resend is allowed now and, if not, how long to wait.
func (f *Flow) CanResend() (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Challenged {
		return false, 0
	}
	wait := f.challenge.ResendAvailableAt.Sub(f.now())
	if wait > 0 {
		return false, wait
	}
	return true, 0
}

// MarkResent restarts the cooldown. The challenge and its attempt count are kept.
func (f *Flow) MarkResent() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Challenged {
		return ErrNoChallenge
	}
	now := f.now()
	if now.Before(f.challenge.ResendAvailableAt) {
		return ErrResendCooldown
	}
	f.challenge.ResendAvailableAt = now.Add(f.cooldown)
	return nil
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flow) snapshot() Snapshot {
	s := Snapshot{State: f.state}
	if f.challenge != nil {
		c := *f.challenge
		s.Challenge = &c
	}
	return s
}

func (f *Flow) clear() {
	f.state = Idle
	f.challenge = nil
	f.resetToken = ""
}
