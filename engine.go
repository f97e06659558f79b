package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keelworks/authcore/internal/audit"
	"github.com/keelworks/authcore/lockout"
	"github.com/keelworks/authcore/password"
	"github.com/keelworks/authcore/refresh"
	"github.com/keelworks/authcore/revocation"
	"github.com/keelworks/authcore/token"
)

// Engine is the authentication orchestrator. It owns no user storage; account
// lookup and creation go through the caller-supplied [UserProvider].
//
// Engine instances are intended to be configured during initialization via
// [Builder] and then treated as immutable.
type Engine struct {
	config     Config
	tokens     *token.Manager
	refresh    refresh.Store
	revocation *revocation.List
	lockout    lockout.Tracker
	passwords  password.Scheme
	users      UserProvider
	audit      *audit.Dispatcher
	metrics    *Metrics
	sweeper    *Sweeper

	// decoyHash equalizes Login timing for unknown accounts.
	decoyHash string

	now func() time.Time
}

// Login verifies credentials and mints a token pair. All credential failures
// collapse into ErrInvalidCredentials; only lockout and disabled states are
// distinguishable, by design of the trust boundary.
func (e *Engine) Login(ctx context.Context, email, pass, ip string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == "" || pass == "" {
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if err := e.lockout.Check(ctx, email); err != nil {
		if errors.Is(err, lockout.ErrLocked) {
			e.metrics.Inc(MetricLoginLocked)
			e.emit(ctx, audit.Event{EventType: audit.TypeLogin, Email: email, IP: ip, Error: "locked"})
			return nil, ErrAccountLocked
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a hash verification so unknown accounts cost the same as
			// wrong passwords, then count the failure like any other.
			_, _ = e.passwords.Verify(pass, e.decoyHash)
			return nil, e.loginFailure(ctx, email, ip, "unknown account")
		}
		e.emit(ctx, audit.Event{EventType: audit.TypeProviderFailure, Email: email, IP: ip, Error: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if user.Status == AccountDisabled {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, audit.Event{EventType: audit.TypeLogin, Email: email, UserID: user.UserID, IP: ip, Error: "disabled"})
		return nil, ErrAccountDisabled
	}

	ok, err := e.passwords.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, email, ip, "wrong password")
	}

	if err := e.lockout.OnSuccess(ctx, email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	pair, err := e.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, audit.Event{EventType: audit.TypeLogin, Email: email, UserID: user.UserID, IP: ip, Success: true})
	return pair, nil
}

// loginFailure counts a failed attempt and collapses the cause into
// ErrInvalidCredentials. A tracker outage during an already-failing login
// still rejects the credentials; the outage is visible in the audit trail.
func (e *Engine) loginFailure(ctx context.Context, email, ip, cause string) error {
	e.metrics.Inc(MetricLoginFailure)

	locked, err := e.lockout.OnFailure(ctx, email)
	if err != nil {
		e.emit(ctx, audit.Event{EventType: audit.TypeProviderFailure, Email: email, IP: ip, Error: err.Error()})
		return ErrInvalidCredentials
	}
	if locked {
		e.metrics.Inc(MetricAccountLocked)
		e.emit(ctx, audit.Event{EventType: audit.TypeAccountLocked, Email: email, IP: ip})
	}

	e.emit(ctx, audit.Event{EventType: audit.TypeLogin, Email: email, IP: ip, Error: cause})
	return ErrInvalidCredentials
}

// Register creates an account. When AutoLoginOnRegister is set the result
// carries a freshly minted token pair.
func (e *Engine) Register(ctx context.Context, req RegisterRequest, ip string) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.Account.RegistrationEnabled {
		return nil, ErrRegistrationDisabled
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := password.CheckPolicy(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{e.config.Account.DefaultRole}
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		Status:       AccountActive,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emit(ctx, audit.Event{EventType: audit.TypeRegister, Email: email, IP: ip, Error: "duplicate"})
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, audit.Event{EventType: audit.TypeRegister, Email: email, UserID: user.UserID, IP: ip, Success: true})

	result := &RegisterResult{UserID: user.UserID, Email: user.Email, Roles: user.Roles}
	if e.config.Account.AutoLoginOnRegister {
		pair, err := e.issuePair(ctx, user)
		if err != nil {
			return nil, err
		}
		result.Tokens = pair
	}
	return result, nil
}

// Refresh rotates a refresh token into a fresh pair. The rotation is
// all-or-nothing: the new pair exists only if the store consumed the old
// record, so a failed refresh never leaves partial state.
//
// Presenting an already-consumed token fails with ErrRefreshInvalid and is
// flagged as replay in metrics and the audit trail. Concurrent refreshes
// racing on one token resolve to a single winner whose pair stays live.
func (e *Engine) Refresh(ctx context.Context, refreshToken, ip string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrRefreshExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}
	email := claims.Subject

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if user.Status == AccountDisabled {
		// A disabled account keeps no sessions.
		if _, err := e.refresh.RevokeAllForUser(ctx, user.UserID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, audit.Event{EventType: audit.TypeRefresh, Email: email, UserID: user.UserID, IP: ip, Error: "disabled"})
		return nil, ErrRefreshInvalid
	}

	now := e.now()
	accessToken, _, err := e.tokens.Issue(email, user.Roles, token.TypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	nextToken, nextClaims, err := e.tokens.Issue(email, nil, token.TypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	_, err = e.refresh.Rotate(ctx, claims.ID, refresh.Record{
		Token:     nextClaims.ID,
		UserID:    user.UserID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: nextClaims.ExpiresAt.Time,
	})
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, refresh.ErrNotFound) {
			// The losing side of a benign concurrent race lands here too, so
			// the reaction must not touch the winner's freshly minted record.
			e.metrics.Inc(MetricReplayDetected)
			e.emit(ctx, audit.Event{EventType: audit.TypeRefreshReplay, Email: email, UserID: user.UserID, IP: ip})
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emit(ctx, audit.Event{EventType: audit.TypeRefresh, Email: email, UserID: user.UserID, IP: ip, Success: true})
	return &TokenPair{AccessToken: accessToken, RefreshToken: nextToken}, nil
}

// Logout ends one session: the access token joins the revocation list for
// its remaining lifetime and the refresh record is deleted. Idempotent;
// expired or already-revoked inputs are not errors.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	var email string

	if accessToken != "" {
		claims, err := e.tokens.Verify(accessToken, token.TypeAccess)
		switch {
		case err == nil:
			email = claims.Subject
			if err := e.revocation.Add(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
		case errors.Is(err, token.ErrExpired):
			// Already dead on its own.
		default:
			return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	if refreshToken != "" {
		claims, err := e.tokens.Verify(refreshToken, token.TypeRefresh)
		if err == nil {
			email = claims.Subject
			if _, err := e.refresh.RevokeOne(ctx, claims.ID); err != nil {
				return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
		}
	}

	e.metrics.Inc(MetricLogout)
	e.emit(ctx, audit.Event{EventType: audit.TypeLogout, Email: email, Success: true})
	return nil
}

// LogoutAll ends every session of the account owning the presented refresh
// token: all of its refresh records are deleted. Outstanding access tokens run
// out on their own short expiry. Returns the number of refresh records
// removed.
func (e *Engine) LogoutAll(ctx context.Context, refreshToken string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	claims, err := e.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}
	email := claims.Subject

	// A consumed or revoked token must not authorize a mass revocation.
	record, err := e.refresh.FindValid(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return 0, ErrRefreshInvalid
		}
		return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	removed, err := e.refresh.RevokeAllForUser(ctx, record.UserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emit(ctx, audit.Event{EventType: audit.TypeLogoutAll, Email: email, UserID: record.UserID, Success: true,
		Metadata: map[string]string{"revoked": fmt.Sprintf("%d", removed)}})
	return removed, nil
}

// Authenticate validates an access token for one request: signature, expiry,
// type, and revocation. Every failure collapses into ErrUnauthenticated; the
// wrapped cause exists for server-side logs only. Revocation-backend outages
// fail closed.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Verify(accessToken, token.TypeAccess)
	if err != nil {
		e.metrics.Inc(MetricAuthRejected)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	revoked, err := e.revocation.IsRevoked(ctx, accessToken)
	if err != nil {
		e.metrics.Inc(MetricAuthRejected)
		return nil, fmt.Errorf("%w: revocation check: %v", ErrUnauthenticated, err)
	}
	if revoked {
		e.metrics.Inc(MetricAuthRejected)
		e.emit(ctx, audit.Event{EventType: audit.TypeTokenRejected, Email: claims.Subject, Error: "revoked"})
		return nil, fmt.Errorf("%w: revoked", ErrUnauthenticated)
	}

	e.metrics.Inc(MetricAuthSuccess)
	return &Identity{Subject: claims.Subject, Roles: claims.Roles}, nil
}

// EnsureBootstrapAdmin provisions the configured admin account if it does
// not exist yet. No-op unless BootstrapAdminEnabled; never overwrites an
// existing account. Intended for first-boot provisioning.
func (e *Engine) EnsureBootstrapAdmin(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.Account.BootstrapAdminEnabled {
		return nil
	}
	email := normalizeEmail(e.config.Account.BootstrapAdminEmail)

	_, err := e.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	hash, err := e.passwords.Hash(e.config.Account.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBootstrapAdminConfig, err)
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{e.config.Account.AdminRole},
		Status:       AccountActive,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			// Lost a race against another instance; the account exists.
			return nil
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricBootstrapAdminCreated)
	e.emit(ctx, audit.Event{EventType: audit.TypeBootstrapAdmin, Email: email, UserID: user.UserID, Success: true})
	return nil
}

// issuePair mints and persists a fresh access/refresh pair for the user.
func (e *Engine) issuePair(ctx context.Context, user UserRecord) (*TokenPair, error) {
	now := e.now()

	accessToken, _, err := e.tokens.Issue(user.Email, user.Roles, token.TypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	refreshToken, claims, err := e.tokens.Issue(user.Email, nil, token.TypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	err = e.refresh.Create(ctx, refresh.Record{
		Token:     claims.ID,
		UserID:    user.UserID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ready rejects zero-value engines that bypassed Builder.Build.
func (e *Engine) ready() error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	e.audit.Emit(ctx, event)
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events shed under dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops the background sweeper and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	e.audit.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
