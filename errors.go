package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for a wrong password and for
	// an unknown account alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while an account is under brute-force
	// lockout. The message never discloses remaining attempts or unlock time.
	ErrAccountLocked = errors.New("account temporarily locked, retry later")
	// ErrAccountDisabled is returned when the account exists but is disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExists is returned by Register for a duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound must be returned by UserProvider implementations when no
	// account matches; the Engine folds it into ErrInvalidCredentials.
	ErrUserNotFound = errors.New("user not found")
	// ErrRegistrationDisabled is returned by Register when account creation is
	// switched off in configuration.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrPasswordPolicy is returned when a new password fails policy checks.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidEmail is returned by Register for a malformed email.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrRefreshInvalid covers forged, unknown, consumed, and replayed refresh
	// tokens. Replay detail is available through audit events only.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshExpired is returned when the presented refresh token is past
	// its expiry instant.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrTokenInvalid is returned by Logout for an access token that cannot be
	// verified and is not merely expired.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUnauthenticated is the single outcome Authenticate exposes for
	// malformed, forged, expired, and revoked access tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProviderUnavailable wraps UserProvider failures other than
	// ErrUserNotFound. The Engine does not retry; retry policy belongs to the
	// caller.
	ErrProviderUnavailable = errors.New("user provider unavailable")
	// ErrBootstrapAdminConfig is returned by EnsureBootstrapAdmin when the
	// fixture is enabled without explicit operator-supplied credentials.
	ErrBootstrapAdminConfig = errors.New("bootstrap admin requires explicit email and password")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// engine that was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
