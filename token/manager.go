package token

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type discriminates the two token classes the codec signs. The value is
// embedded in the "typ" claim and double-checked after signature verification.
type Type string

const (
	// TypeAccess marks short-lived, self-contained access tokens.
	TypeAccess Type = "access"
	// TypeRefresh marks longer-lived, store-backed refresh tokens.
	TypeRefresh Type = "refresh"
)

const minKeyBytes = 32

var (
	// ErrMalformed indicates structurally invalid input.
	ErrMalformed = errors.New("token malformed")
	// ErrSignatureInvalid indicates a signature that does not verify under the
	// expected key, including tokens signed with the other type's key.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired indicates a token past its expiry instant (exp <= now).
	ErrExpired = errors.New("token expired")
	// ErrWrongType indicates a validly signed token presented as the wrong
	// token type.
	ErrWrongType = errors.New("unexpected token type")
)

// Config holds the codec's key material and lifetimes.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AccessKey  []byte
	RefreshKey []byte
	Issuer     string
	Leeway     time.Duration
}

// Claims is the signed claim set. Subject carries the account email; Roles is
// populated on access tokens only; ID (jti) keys the refresh-token store.
type Claims struct {
	Roles     []string `json:"roles,omitempty"`
	TokenType Type     `json:"typ"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens. It is stateless and safe for
// concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a codec. Both keys must
// carry at least 256 bits, must differ, and both TTLs must be positive.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessKey) < minKeyBytes {
		return nil, errors.New("access key requires at least 32 bytes")
	}
	if len(cfg.RefreshKey) < minKeyBytes {
		return nil, errors.New("refresh key requires at least 32 bytes")
	}
	if len(cfg.AccessKey) == len(cfg.RefreshKey) &&
		subtle.ConstantTimeCompare(cfg.AccessKey, cfg.RefreshKey) == 1 {
		return nil, errors.New("access and refresh keys must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime for the given token type.
func (m *Manager) TTL(typ Type) time.Duration {
	if typ == TypeRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}

// Issue signs a token of the given type for subject, valid from now until
// now plus the type's TTL. Roles are embedded on access tokens only; refresh
// tokens carry the subject and a fresh jti that keys the refresh store.
func (m *Manager) Issue(subject string, roles []string, typ Type, now time.Time) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("empty subject")
	}

	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(typ))),
		},
	}
	if typ == TypeAccess {
		claims.Roles = roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey(typ))
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// Verify parses and validates a token string against the expected type's key,
// expiry, and issuer. It distinguishes the failure cause for logging; callers
// at the trust boundary must collapse all causes into a generic rejection.
func (m *Manager) Verify(tokenStr string, expected Type) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.signKey(expected), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenType != expected {
		return nil, ErrWrongType
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

func (m *Manager) signKey(typ Type) []byte {
	if typ == TypeRefresh {
		return m.config.RefreshKey
	}
	return m.config.AccessKey
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		// Issuer mismatch, future iat, and other claim-shape failures.
		return ErrMalformed
	}
}
