package authcore

import "context"

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive marks an account that may authenticate.
	AccountActive AccountStatus = iota
	// AccountDisabled marks an account that is rejected at login with
	// ErrAccountDisabled regardless of credentials.
	AccountDisabled
)

// UserRecord is the account record returned by [UserProvider]. It carries the
// credential hash, status, and the current role set embedded into freshly
// issued access tokens.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Roles        []string
	Status       AccountStatus
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	UserID       string
	Email        string
	PasswordHash string
	Roles        []string
	Status       AccountStatus
}

// UserProvider is the interface callers implement to integrate authcore with
// their user database. The persistent user store is assumed, not designed,
// here: authcore needs keyed lookup and insert only.
//
// GetUserByEmail must return [ErrUserNotFound] (possibly wrapped) when no
// account matches; any other error is treated as a backend failure and
// surfaces wrapped in [ErrProviderUnavailable]. CreateUser must return
// [ErrAccountExists] for a duplicate email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// TokenPair is the result of a successful Login, Register (with auto-login),
// or Refresh: a short-lived signed access token and a durable refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Identity is the request-scoped result of [Engine.Authenticate], attached to
// the request context by the middleware guard for downstream role checks.
type Identity struct {
	Subject string
	Roles   []string
}

// RegisterRequest is the input for [Engine.Register]. Roles defaults to the
// configured default role when empty.
type RegisterRequest struct {
	Email    string
	Password string
	Roles    []string
}

// RegisterResult is returned by [Engine.Register]. Tokens is non-nil only when
// auto-login is enabled in configuration.
type RegisterResult struct {
	UserID string
	Email  string
	Roles  []string
	Tokens *TokenPair
}
