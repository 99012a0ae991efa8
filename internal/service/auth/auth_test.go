package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/pkg/jwt"
	"storefront/internal/pkg/session"
	"storefront/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCode = "424242"

type sentOTP struct {
	to      string
	code    string
	purpose auth.Purpose
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
}

func (n *captureNotifier) SendOTP(_ context.Context, to, _, code string, purpose auth.Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentOTP{to: to, code: code, purpose: purpose})
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordedLogouts struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordedLogouts) ForceLogout(identityID, sessionID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, identityID+"/"+sessionID)
}

type fixture struct {
	svc      *AuthService
	users    *memory.UserRepository
	notifier *captureNotifier
	logouts  *recordedLogouts
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jm, err := jwt.LoadAndBuild(jwt.Config{Issuer: "test", Audience: "test-web", TTL: 15 * time.Minute, KID: "k1"})
	require.NoError(t, err)

	f := &fixture{
		users:    memory.NewUserRepository(),
		notifier: &captureNotifier{},
		logouts:  &recordedLogouts{},
		mr:       mr,
	}
	f.svc = NewAuthService(
		f.users,
		jm,
		session.NewManager(client, nil),
		session.NewRateLimiter(client),
		session.NewOTPStore(client, 10*time.Minute, testCode),
		f.notifier,
		f.logouts,
		nil,
	)
	return f
}

func (f *fixture) signup(t *testing.T, email string) *auth.LoginResponse {
	t.Helper()
	ctx := context.Background()
	ch, err := f.svc.Register(ctx, &auth.RegisterRequest{Email: email, Password: "secret123", FirstName: "Asha", Mobile: "9876543210"})
	require.NoError(t, err)

	res, err := f.svc.VerifyOTP(ctx, &auth.VerifyOTPRequest{UserID: ch.UserID, OTP: testCode, Purpose: auth.PurposeSignupVerification}, "cli", ClientInfo{})
	require.NoError(t, err)
	require.NotNil(t, res.Login)
	return res.Login
}

func TestRegisterIssuesChallengeWithoutSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.Register(ctx, &auth.RegisterRequest{Email: " Asha@Example.com ", Password: "secret123", FirstName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeSignupVerification, ch.Purpose)
	assert.Equal(t, "asha@example.com", ch.Contact)
	assert.Equal(t, 1, f.notifier.count())

	t.Run("unverified account cannot log in", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &auth.LoginRequest{Email: "asha@example.com", Password: "secret123"}, ClientInfo{IPAddress: "1.1.1.1"})
		assert.True(t, errors.Is(err, xerrors.ErrNotVerified))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Register(ctx, &auth.RegisterRequest{Email: "asha@example.com", Password: "secret123", FirstName: "A"})
		assert.True(t, errors.Is(err, xerrors.ErrDuplicateEntry))
	})
}

func TestVerifySignupStartsSession(t *testing.T) {
	f := newFixture(t)
	login := f.signup(t, "asha@example.com")

	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.True(t, login.User.EmailVerified)
	assert.Equal(t, "Asha", login.User.DisplayName)

	claims, err := f.svc.ValidateToken(context.Background(), login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, claims.IdentityID)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, err := f.svc.Register(ctx, &auth.RegisterRequest{Email: "b@example.com", Password: "secret123", FirstName: "B"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, &auth.VerifyOTPRequest{UserID: ch.UserID, OTP: "000000", Purpose: auth.PurposeSignupVerification}, "", ClientInfo{})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidOTP))

	_, err = f.svc.VerifyOTP(ctx, &auth.VerifyOTPRequest{UserID: ch.UserID, OTP: testCode, Purpose: auth.PurposeMobileVerification}, "", ClientInfo{})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "asha@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success", email: "asha@example.com", password: "secret123"},
		{name: "wrong password", email: "asha@example.com", password: "nope-nope", wantErr: xerrors.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: "secret123", wantErr: xerrors.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Login(ctx, &auth.LoginRequest{Email: tt.email, Password: tt.password}, ClientInfo{IPAddress: "10.0.0.1"})
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bearer", res.TokenType)
			assert.Equal(t, 900, res.ExpiresIn)
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &auth.LoginRequest{Email: "x@example.com", Password: "whatever1"}

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, req, ClientInfo{IPAddress: "10.0.0.2"})
		require.True(t, errors.Is(err, xerrors.ErrInvalidCredentials))
	}
	_, err := f.svc.Login(ctx, req, ClientInfo{IPAddress: "10.0.0.2"})
	assert.True(t, errors.Is(err, xerrors.ErrRateLimited))
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := f.signup(t, "asha@example.com")

	next, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)

	_, err = f.svc.ValidateToken(ctx, next.AccessToken)
	require.NoError(t, err)

	t.Run("replaying the old refresh token ends the session", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, login.RefreshToken)
		assert.True(t, errors.Is(err, xerrors.ErrSessionExpired))

		_, err = f.svc.ValidateToken(ctx, next.AccessToken)
		assert.True(t, errors.Is(err, xerrors.ErrSessionExpired))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, "not-a-jwt")
		assert.True(t, errors.Is(err, xerrors.ErrSessionExpired))
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := f.signup(t, "asha@example.com")

	claims, err := f.svc.ValidateToken(ctx, login.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.ValidateToken(ctx, login.AccessToken)
	assert.True(t, errors.Is(err, xerrors.ErrSessionExpired))
	assert.Equal(t, []string{claims.IdentityID + "/" + claims.SessionID}, f.logouts.calls)

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.True(t, errors.Is(err, xerrors.ErrSessionExpired))
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := f.signup(t, "asha@example.com")

	ch, err := f.svc.ForgotPassword(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, ch.UserID)

	res, err := f.svc.VerifyOTP(ctx, &auth.VerifyOTPRequest{UserID: ch.UserID, OTP: testCode, Purpose: auth.PurposePasswordReset}, "", ClientInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, res.ResetToken)
	assert.Nil(t, res.Login)

	require.NoError(t, f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{ResetToken: res.ResetToken, NewPassword: "brandnew1"}))

	_, err = f.svc.ValidateToken(ctx, login.AccessToken)
	assert.True(t, errors.Is(err, xerrors.ErrSessionExpired), "old sessions end after a reset")

	_, err = f.svc.Login(ctx, &auth.LoginRequest{Email: "asha@example.com", Password: "brandnew1"}, ClientInfo{IPAddress: "10.0.0.3"})
	assert.NoError(t, err)

	t.Run("reset token is single use", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{ResetToken: res.ResetToken, NewPassword: "another12"})
		assert.True(t, errors.Is(err, xerrors.ErrUnauthorized))
	})
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	ch, err := f.svc.ForgotPassword(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, ch.UserID)
	assert.Equal(t, 0, f.notifier.count())
}

func TestMobileVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := f.signup(t, "asha@example.com")

	ch, err := f.svc.SendMobileOTP(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", ch.Contact)

	id, err := f.svc.VerifyMobile(ctx, login.User.ID, testCode)
	require.NoError(t, err)
	assert.True(t, id.MobileVerified)

	t.Run("changing the number clears verification", func(t *testing.T) {
		mobile := "9123456789"
		id, err := f.svc.UpdateProfile(ctx, login.User.ID, &auth.UpdateProfileRequest{Mobile: &mobile})
		require.NoError(t, err)
		assert.False(t, id.MobileVerified)
		assert.Equal(t, mobile, id.Mobile)
	})
}

func TestResendOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, err := f.svc.Register(ctx, &auth.RegisterRequest{Email: "c@example.com", Password: "secret123", FirstName: "C"})
	require.NoError(t, err)

	_, err = f.svc.ResendOTP(ctx, &auth.ResendOTPRequest{UserID: ch.UserID, Purpose: auth.PurposeSignupVerification})
	require.NoError(t, err)
	assert.Equal(t, 2, f.notifier.count())

	_, err = f.svc.ResendOTP(ctx, &auth.ResendOTPRequest{UserID: ch.UserID, Purpose: "bogus"})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func resetToken(t *testing.T, f *fixture, email string) string {
	t.Helper()
	ctx := context.Background()
	ch, err := f.svc.ForgotPassword(ctx, email)
	require.NoError(t, err)
	res, err := f.svc.VerifyOTP(ctx, &auth.VerifyOTPRequest{UserID: ch.UserID, OTP: testCode, Purpose: auth.PurposePasswordReset}, "", ClientInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, res.ResetToken)
	return res.ResetToken
}

func TestResetPasswordRefusedWhenUseCannotBeRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "asha@example.com")
	token := resetToken(t, f, "asha@example.com")

	f.mr.SetError("LOADING redis is loading the dataset in memory")
	err := f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{ResetToken: token, NewPassword: "brandnew1"})
	require.Error(t, err)
	f.mr.SetError("")

	_, err = f.svc.Login(ctx, &auth.LoginRequest{Email: "asha@example.com", Password: "secret123"}, ClientInfo{IPAddress: "10.0.0.4"})
	assert.NoError(t, err, "the password is unchanged")

	require.NoError(t, f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{ResetToken: token, NewPassword: "brandnew1"}))
}

func TestResetTokenRacesHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "asha@example.com")
	token := resetToken(t, f, "asha@example.com")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(context.Background(), &auth.ResetPasswordRequest{ResetToken: token, NewPassword: "brandnew1"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, xerrors.ErrUnauthorized))
	}
	assert.Equal(t, 1, ok)
}
