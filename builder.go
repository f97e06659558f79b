package authcore

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/keelworks/authcore/internal/audit"
	"github.com/keelworks/authcore/lockout"
	"github.com/keelworks/authcore/password"
	"github.com/keelworks/authcore/refresh"
	"github.com/keelworks/authcore/revocation"
	"github.com/keelworks/authcore/token"
)

// Builder assembles an [Engine]. With a Redis client set, refresh storage,
// revocation, and lockout default to their Redis implementations; explicit
// With* calls override any default. Without Redis, a refresh store must be
// supplied and revocation/lockout fall back to in-process implementations.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	refreshStore refresh.Store
	revBackend   revocation.Backend
	tracker      lockout.Tracker
	passwords    password.Scheme
	auditSink    AuditSink

	built bool
}

// New returns a builder preloaded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration. Key material is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithKeys sets the two signing keys without replacing the rest of the
// configuration.
func (b *Builder) WithKeys(accessKey, refreshKey []byte) *Builder {
	b.config.Token.AccessKey = cloneBytes(accessKey)
	b.config.Token.RefreshKey = cloneBytes(refreshKey)
	return b
}

// WithRedis sets the shared Redis client used by the default store
// implementations.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the account lookup/creation integration. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithRefreshStore overrides the refresh token store.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithRevocationBackend overrides the revocation list backend.
func (b *Builder) WithRevocationBackend(backend revocation.Backend) *Builder {
	b.revBackend = backend
	return b
}

// WithLockoutTracker overrides the failed-attempt tracker.
func (b *Builder) WithLockoutTracker(tracker lockout.Tracker) *Builder {
	b.tracker = tracker
	return b
}

// WithPasswordScheme overrides the credential hashing scheme.
func (b *Builder) WithPasswordScheme(scheme password.Scheme) *Builder {
	b.passwords = scheme
	return b
}

// WithAuditSink sets the audit event destination and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the counter set.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires defaults, and starts the
// background sweeper. A builder builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:  b.config.Token.AccessTTL,
		RefreshTTL: b.config.Token.RefreshTTL,
		AccessKey:  b.config.Token.AccessKey,
		RefreshKey: b.config.Token.RefreshKey,
		Issuer:     b.config.Token.Issuer,
		Leeway:     b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwords := b.passwords
	if passwords == nil {
		passwords, err = password.NewArgon2id(b.config.Password.Params)
		if err != nil {
			return nil, err
		}
	}

	refreshStore := b.refreshStore
	if refreshStore == nil {
		if b.redis == nil {
			return nil, errors.New("refresh store is required without redis")
		}
		refreshStore = refresh.NewRedisStore(b.redis, b.config.Storage.RefreshPrefix)
	}

	revBackend := b.revBackend
	if revBackend == nil {
		if b.redis != nil {
			revBackend = revocation.NewRedisBackend(b.redis, b.config.Storage.RevocationPrefix)
		} else {
			revBackend = revocation.NewMemoryBackend()
		}
	}

	tracker := b.tracker
	if tracker == nil {
		policy := lockout.Policy{
			Threshold:    b.config.Lockout.Threshold,
			LockDuration: b.config.Lockout.LockDuration,
			Window:       b.config.Lockout.Window,
		}
		if b.redis != nil {
			tracker, err = lockout.NewRedisTracker(b.redis, b.config.Storage.LockoutPrefix, policy)
		} else {
			tracker, err = lockout.NewMemoryTracker(policy)
		}
		if err != nil {
			return nil, err
		}
	}

	// Decoy hash for timing-equalized rejection of unknown accounts.
	decoyHash, err := passwords.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     b.config,
		tokens:     tokens,
		refresh:    refreshStore,
		revocation: revocation.NewList(revBackend),
		lockout:    tracker,
		passwords:  passwords,
		users:      b.userProvider,
		metrics:    NewMetrics(b.config.Metrics.Enabled),
		decoyHash:  decoyHash,
		now:        time.Now,
	}

	engine.audit = audit.NewDispatcher(audit.Options{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	sweeper, err := newSweeper(engine, b.config.Sweep)
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.sweeper = sweeper

	b.built = true
	return engine, nil
}
