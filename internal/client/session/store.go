// Package session holds the signed-in identity of the storefront client and
// the operations that change it.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront/internal/client/otp"
	"storefront/internal/client/remote"
	"storefront/internal/client/storage"
	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const logoutTimeout = 10 * time.Second

// API is the part of the remote client the store depends on.
type API interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...remote.RequestOption) error
	OnSessionExpired(fn func())
	OnRefreshed(fn func(auth.TokenPair))
}

// State is what observers see. Values are copies.
type State struct {
	Identity           *auth.Identity
	Session            *auth.Session
	Loading            bool
	MustReauthenticate bool
	Challenge          otp.Snapshot
}

func (s State) IsAuthenticated() bool {
	return s.Session != nil && s.Identity != nil
}

type SignupRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Mobile    string
}

type Store struct {
	api    API
	vault  *storage.Vault
	flow   *otp.Flow
	logger *zap.Logger

	// dispatch serialises commit plus notification so observers see changes in order.
	dispatch sync.Mutex

	mu       sync.Mutex
	state    State
	epoch    uint64
	nextID   int
	subs     map[int]func(State)
	watchers map[int]func(*auth.Identity)

	bg sync.WaitGroup
}

func NewStore(api API, vault *storage.Vault, flow *otp.Flow, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if flow == nil {
		flow = otp.NewFlow()
	}
	s := &Store{
		api:      api,
		vault:    vault,
		flow:     flow,
		logger:   logger,
		subs:     make(map[int]func(State)),
		watchers: make(map[int]func(*auth.Identity)),
	}
	api.OnSessionExpired(s.ExpireSession)
	api.OnRefreshed(s.tokensRotated)
	return s
}

func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) IsAuthenticated() bool {
	return s.Current().IsAuthenticated()
}

// Identity returns the current identity or nil when anonymous.
func (s *Store) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyIdentity(s.state.Identity)
}

// Subscribe calls fn after every state change until cancel is called.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Watch calls fn whenever the current identity switches, including to and
// from anonymous. Profile edits of the same identity are not reported.
func (s *Store) Watch(fn func(*auth.Identity)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// ResumeSession restores a persisted session. Without a persisted pair it
// makes no network call.
func (s *Store) ResumeSession(ctx context.Context) error {
	s.commit(func(st *State) { st.Loading = true })

	pair, ok, err := s.vault.Tokens(ctx)
	if err != nil {
		s.commit(func(st *State) { st.Loading = false })
		return persistError("failed to read persisted session", err)
	}
	if !ok {
		s.commit(func(st *State) {
			st.Identity, st.Session, st.Loading = nil, nil, false
		})
		return nil
	}

	profile, found, err := s.vault.Profile(ctx)
	if err != nil && !errors.Is(err, storage.ErrCorruptProfile) {
		s.commit(func(st *State) { st.Loading = false })
		return persistError("failed to read persisted profile", err)
	}
	if found {
		s.commit(func(st *State) {
			st.Identity = profile
			st.Session = sessionFrom(pair)
			st.Loading = false
			st.MustReauthenticate = false
		})
		return nil
	}
	if err != nil {
		s.logger.Warn("discarded corrupt profile snapshot", zap.Error(err))
	}

	// Identity lags the session until the profile arrives.
	epoch := s.commit(func(st *State) {
		st.Identity = nil
		st.Session = sessionFrom(pair)
	})

	var identity auth.Identity
	if err := s.api.Do(ctx, http.MethodGet, "/users/profile", nil, &identity); err != nil {
		s.commit(func(st *State) { st.Loading = false })
		return err
	}
	if err := s.vault.SaveProfile(ctx, identity); err != nil {
		s.commit(func(st *State) { st.Loading = false })
		return persistError("failed to persist profile", err)
	}
	s.commitIf(epoch, func(st *State) {
		st.Identity = &identity
		st.Loading = false
	})
	return nil
}

// Login exchanges credentials for a session. A rejected pair fails with
// InvalidCredentials and is not retried.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return xerrors.Validation("password is required")
	}

	var resp auth.LoginResponse
	req := auth.LoginRequest{Email: email, Password: password}
	if err := s.api.Do(ctx, http.MethodPost, "/auth/login", req, &resp, remote.WithoutAuth()); err != nil {
		return err
	}
	return s.establish(ctx, &resp)
}

// Signup registers an account and starts its verification challenge. No
// session exists until VerifyOTP succeeds.
func (s *Store) Signup(ctx context.Context, req SignupRequest) (otp.Challenge, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(req.Email); err != nil {
		return otp.Challenge{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return otp.Challenge{}, err
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return otp.Challenge{}, xerrors.Validation("first name is required")
	}
	if req.Mobile != "" {
		if err := validateMobile(req.Mobile); err != nil {
			return otp.Challenge{}, err
		}
	}

	var resp auth.ChallengeResponse
	body := auth.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Mobile:    req.Mobile,
	}
	if err := s.api.Do(ctx, http.MethodPost, "/auth/register", body, &resp, remote.WithoutAuth()); err != nil {
		return otp.Challenge{}, err
	}
	return s.begin(auth.PurposeSignupVerification, &resp), nil
}

// VerifyOTP submits the code for the active challenge.
func (s *Store) VerifyOTP(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := validateCode(code); err != nil {
		return err
	}

	ch, err := s.flow.StartVerify()
	if err != nil {
		return flowError(err)
	}
	s.commit(nil)

	switch ch.Purpose {
	case auth.PurposeMobileVerification:
		var identity auth.Identity
		err = s.api.Do(ctx, http.MethodPost, "/auth/verify-mobile", auth.VerifyMobileRequest{OTP: code}, &identity)
		if err != nil {
			return s.verifyFailed(err)
		}
		if err := s.vault.SaveProfile(ctx, identity); err != nil {
			s.flow.Interrupt()
			s.commit(nil)
			return persistError("failed to persist profile", err)
		}
		s.flow.Resolve("")
		s.commit(func(st *State) {
			if st.Identity != nil && st.Identity.ID == identity.ID {
				st.Identity = &identity
			}
		})
		return nil

	default:
		var resp auth.VerifyOTPResponse
		req := auth.VerifyOTPRequest{UserID: ch.UserID, OTP: code, Purpose: ch.Purpose}
		err = s.api.Do(ctx, http.MethodPost, "/auth/verify-otp", req, &resp, remote.WithoutAuth())
		if err != nil {
			return s.verifyFailed(err)
		}

		if ch.Purpose == auth.PurposePasswordReset {
			s.flow.Resolve(resp.ResetToken)
			s.commit(nil)
			return nil
		}
		if resp.Login == nil {
			s.flow.Interrupt()
			s.commit(nil)
			return xerrors.New(xerrors.KindRejected, "", "verification did not return a session")
		}
		s.flow.Resolve("")
		return s.establish(ctx, resp.Login)
	}
}

// verifyFailed counts answers the server gave about the code itself; transport
// and session failures leave the attempt uncounted.
func (s *Store) verifyFailed(err error) error {
	var xe *xerrors.Error
	if errors.As(err, &xe) && xe.Status >= 400 && xe.Status < 500 && xe.Status != http.StatusUnauthorized {
		s.flow.Fail()
	} else {
		s.flow.Interrupt()
	}
	s.commit(nil)
	return err
}

// ResendOTP re-issues the code of the active challenge once the cooldown has passed.
func (s *Store) ResendOTP(ctx context.Context) (otp.Challenge, error) {
	snap := s.flow.Snapshot()
	if snap.State != otp.Challenged || snap.Challenge == nil {
		return otp.Challenge{}, flowError(otp.ErrNoChallenge)
	}
	if ok, wait := s.flow.CanResend(); !ok {
		return otp.Challenge{}, &xerrors.Error{
			Kind:    xerrors.KindValidationFailure,
			Code:    xerrors.CodeRateLimited,
			Message: "please wait " + wait.Round(time.Second).String() + " before requesting another code",
			Err:     otp.ErrResendCooldown,
		}
	}

	ch := snap.Challenge
	var resp auth.ChallengeResponse
	var err error
	if ch.Purpose == auth.PurposeMobileVerification {
		err = s.api.Do(ctx, http.MethodPost, "/otp/send-mobile", nil, &resp)
	} else {
		req := auth.ResendOTPRequest{UserID: ch.UserID, Purpose: ch.Purpose}
		err = s.api.Do(ctx, http.MethodPost, "/otp/resend", req, &resp, remote.WithoutAuth())
	}
	if err != nil {
		return otp.Challenge{}, err
	}

	if err := s.flow.MarkResent(); err != nil {
		return otp.Challenge{}, flowError(err)
	}
	s.commit(nil)

	if cur := s.flow.Snapshot().Challenge; cur != nil {
		return *cur, nil
	}
	return *ch, nil
}

// ForgotPassword starts a password-reset challenge.
func (s *Store) ForgotPassword(ctx context.Context, email string) (otp.Challenge, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return otp.Challenge{}, err
	}

	var resp auth.ChallengeResponse
	req := auth.ForgotPasswordRequest{Email: email}
	if err := s.api.Do(ctx, http.MethodPost, "/auth/forgot-password", req, &resp, remote.WithoutAuth()); err != nil {
		return otp.Challenge{}, err
	}
	if resp.Contact == "" {
		resp.Contact = email
	}
	return s.begin(auth.PurposePasswordReset, &resp), nil
}

// ResetPassword sets the new password after a verified reset code. The server
// ends every session of the account, including a local one.
func (s *Store) ResetPassword(ctx context.Context, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	token, err := s.flow.ResetToken()
	if err != nil {
		return flowError(err)
	}
	userID := ""
	if snap := s.flow.Snapshot(); snap.Challenge != nil {
		userID = snap.Challenge.UserID
	}

	req := auth.ResetPasswordRequest{ResetToken: token, NewPassword: newPassword}
	if err := s.api.Do(ctx, http.MethodPost, "/auth/reset-password", req, nil, remote.WithoutAuth()); err != nil {
		return err
	}
	if err := s.flow.CompleteReset(); err != nil {
		return flowError(err)
	}

	if id := s.Identity(); id != nil && id.ID == userID {
		s.clearLocal(false)
		return nil
	}
	s.commit(nil)
	return nil
}

func (s *Store) CancelChallenge() {
	s.flow.Cancel()
	s.commit(nil)
}

// StartMobileVerification sends a code to the mobile number on the profile.
func (s *Store) StartMobileVerification(ctx context.Context) (otp.Challenge, error) {
	if !s.IsAuthenticated() {
		return otp.Challenge{}, errUnauthenticated()
	}

	var resp auth.ChallengeResponse
	if err := s.api.Do(ctx, http.MethodPost, "/otp/send-mobile", nil, &resp); err != nil {
		return otp.Challenge{}, err
	}
	return s.begin(auth.PurposeMobileVerification, &resp), nil
}

// RefreshProfile reloads the identity from the server.
func (s *Store) RefreshProfile(ctx context.Context) (*auth.Identity, error) {
	return s.profileCall(ctx, http.MethodGet, nil)
}

// UpdateProfile applies the non-nil fields of req. Changing the mobile number
// clears its verification on the server.
func (s *Store) UpdateProfile(ctx context.Context, req auth.UpdateProfileRequest) (*auth.Identity, error) {
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		return nil, xerrors.Validation("first name cannot be empty")
	}
	if req.Mobile != nil && *req.Mobile != "" {
		if err := validateMobile(*req.Mobile); err != nil {
			return nil, err
		}
	}
	return s.profileCall(ctx, http.MethodPut, req)
}

func (s *Store) profileCall(ctx context.Context, method string, body any) (*auth.Identity, error) {
	current := s.Identity()
	if current == nil || !s.IsAuthenticated() {
		return nil, errUnauthenticated()
	}

	var identity auth.Identity
	if err := s.api.Do(ctx, method, "/users/profile", body, &identity); err != nil {
		return nil, err
	}
	if identity.ID != current.ID {
		return nil, xerrors.New(xerrors.KindRejected, "", "profile belongs to another account")
	}
	if err := s.vault.SaveProfile(ctx, identity); err != nil {
		return nil, persistError("failed to persist profile", err)
	}
	s.commit(func(st *State) {
		if st.Identity != nil && st.Identity.ID == identity.ID {
			st.Identity = &identity
		}
	})
	return &identity, nil
}

// Logout ends the local session before it returns; observers have already
// seen the anonymous state. The server is told in the background.
func (s *Store) Logout() error {
	token := ""
	if cur := s.Current(); cur.Session != nil {
		token = cur.Session.AccessToken
	}

	err := s.clearLocal(false)

	if token != "" {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
			defer cancel()
			if err := s.api.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, remote.WithToken(token)); err != nil {
				s.logger.Debug("remote logout failed", zap.Error(err))
			}
		}()
	}
	return err
}

// Close waits for background work started by Logout.
func (s *Store) Close() {
	s.bg.Wait()
}

// ExpireSession ends the local session because the server no longer accepts
// it. Observers see MustReauthenticate.
func (s *Store) ExpireSession() {
	s.logger.Info("session expired")
	_ = s.clearLocal(true)
}

func (s *Store) tokensRotated(pair auth.TokenPair) {
	s.commit(func(st *State) {
		if st.Session != nil {
			st.Session = sessionFrom(pair)
		}
	})
}

// establish persists a fresh session before committing it.
func (s *Store) establish(ctx context.Context, resp *auth.LoginResponse) error {
	if resp.AccessToken == "" {
		return xerrors.New(xerrors.KindRejected, "", "login response carried no token")
	}
	pair := resp.Tokens()
	identity := resp.User
	if err := s.vault.SaveSession(ctx, pair, identity); err != nil {
		return persistError("failed to persist session", err)
	}

	s.flow.Cancel()
	s.commit(func(st *State) {
		st.Identity = &identity
		st.Session = sessionFrom(pair)
		st.Loading = false
		st.MustReauthenticate = false
	})
	return nil
}

func (s *Store) begin(purpose auth.Purpose, resp *auth.ChallengeResponse) otp.Challenge {
	if resp.Purpose != "" {
		purpose = resp.Purpose
	}
	ch := s.flow.Begin(purpose, resp.Contact, resp.UserID)
	s.commit(nil)
	return ch
}

func (s *Store) clearLocal(mustReauth bool) error {
	err := s.vault.Clear(context.Background())
	if err != nil {
		s.logger.Warn("failed to clear persisted session", zap.Error(err))
	}
	s.flow.Cancel()
	s.commit(func(st *State) {
		st.Identity = nil
		st.Session = nil
		st.Loading = false
		st.MustReauthenticate = mustReauth
	})
	return err
}

// commit applies fn and notifies observers. It returns the epoch after the change.
func (s *Store) commit(fn func(*State)) uint64 {
	return s.apply(fn, nil)
}

// commitIf applies fn only if neither the identity nor the session came or
// went since epoch.
func (s *Store) commitIf(epoch uint64, fn func(*State)) {
	s.apply(fn, &epoch)
}

func (s *Store) apply(fn func(*State), expect *uint64) uint64 {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	if expect != nil && *expect != s.epoch {
		e := s.epoch
		s.mu.Unlock()
		return e
	}
	prev := identityID(s.state.Identity)
	hadSession := s.state.Session != nil
	if fn != nil {
		fn(&s.state)
	}
	s.state.Challenge = s.flow.Snapshot()
	switched := identityID(s.state.Identity) != prev
	if switched || hadSession != (s.state.Session != nil) {
		s.epoch++
	}
	epoch := s.epoch

	state := s.snapshot()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	var watchers []func(*auth.Identity)
	if switched {
		for _, fn := range s.watchers {
			watchers = append(watchers, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(copyIdentity(state.Identity))
	}
	for _, fn := range subs {
		fn(state)
	}
	return epoch
}

func (s *Store) snapshot() State {
	st := s.state
	st.Identity = copyIdentity(st.Identity)
	if st.Session != nil {
		sess := *st.Session
		st.Session = &sess
	}
	return st
}

func sessionFrom(pair auth.TokenPair) *auth.Session {
	sess := &auth.Session{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if exp, ok := tokenExpiry(pair.AccessToken); ok {
		sess.ExpiresAt = exp
	} else {
		sess.ExpiresImplicitly = true
	}
	return sess
}

// tokenExpiry reads the exp claim of a bearer token without verifying it. The
// client cannot verify tokens; it only needs to know when to expect a refresh.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func copyIdentity(id *auth.Identity) *auth.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func identityID(id *auth.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}

func errUnauthenticated() error {
	return xerrors.New(xerrors.KindUnauthenticated, xerrors.CodeAuthFailed, "please sign in to continue")
}

func flowError(err error) error {
	return &xerrors.Error{Kind: xerrors.KindValidationFailure, Code: xerrors.CodeValidation, Message: err.Error(), Err: err}
}

func persistError(msg string, err error) error {
	return &xerrors.Error{Kind: xerrors.KindUnknown, Message: msg, Err: err}
}
