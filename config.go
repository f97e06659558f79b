package authcore

import (
	"errors"
	"time"

	"github.com/keelworks/authcore/password"
)

// Config is the engine's full configuration surface. Zero values are filled
// from defaults in Build; Validate rejects combinations that cannot run.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Token    TokenConfig
	Lockout  LockoutConfig
	Account  AccountConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Sweep    SweepConfig
	Storage  StorageConfig
}

// TokenConfig holds signing keys and lifetimes. Access and refresh keys must
// be at least 32 bytes and must differ.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AccessKey  []byte
	RefreshKey []byte
	Issuer     string
	Leeway     time.Duration
}

// LockoutConfig controls the failed-attempt tracker.
type LockoutConfig struct {
	Threshold    int
	LockDuration time.Duration
	Window       time.Duration
}

// AccountConfig controls registration and the bootstrap admin.
//
// Bootstrap is disabled by default and carries no credential defaults: both
// BootstrapAdminEmail and BootstrapAdminPassword must be supplied explicitly,
// typically from the deployment environment.
type AccountConfig struct {
	RegistrationEnabled    bool
	AutoLoginOnRegister    bool
	DefaultRole            string
	AdminRole              string
	BootstrapAdminEnabled  bool
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Params password.Params
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the counter set.
type MetricsConfig struct {
	Enabled bool
}

// SweepConfig holds cron expressions for the background sweeps. Empty
// disables the corresponding sweep.
type SweepConfig struct {
	RevocationSchedule string
	RefreshSchedule    string
}

// StorageConfig holds Redis key namespaces.
type StorageConfig struct {
	RefreshPrefix    string
	RevocationPrefix string
	LockoutPrefix    string
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
		},
		Lockout: LockoutConfig{
			Threshold:    5,
			LockDuration: 15 * time.Minute,
			Window:       15 * time.Minute,
		},
		Account: AccountConfig{
			RegistrationEnabled: true,
			AutoLoginOnRegister: true,
			DefaultRole:         "user",
			AdminRole:           "admin",
		},
		Password: PasswordConfig{
			Params: password.DefaultParams(),
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Sweep: SweepConfig{
			RevocationSchedule: "@every 1m",
			RefreshSchedule:    "@every 5m",
		},
		Storage: StorageConfig{
			RefreshPrefix:    "rt",
			RevocationPrefix: "rvk",
			LockoutPrefix:    "lck",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessKey = cloneBytes(cfg.Token.AccessKey)
	out.Token.RefreshKey = cloneBytes(cfg.Token.RefreshKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations that cannot run. Key material is validated
// again by the token codec; the checks here exist to fail Build with a
// caller-attributable message.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be > 0")
	}
	if len(c.Token.AccessKey) < 32 {
		return errors.New("token access key must be >= 32 bytes")
	}
	if len(c.Token.RefreshKey) < 32 {
		return errors.New("token refresh key must be >= 32 bytes")
	}
	if c.Lockout.Threshold <= 0 {
		return errors.New("lockout threshold must be > 0")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("lockout duration must be > 0")
	}
	if c.Account.DefaultRole == "" {
		return errors.New("default role must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0 when audit is enabled")
	}
	if c.Account.BootstrapAdminEnabled {
		if c.Account.BootstrapAdminEmail == "" || c.Account.BootstrapAdminPassword == "" {
			return ErrBootstrapAdminConfig
		}
	}
	return nil
}
