// Package authcore implements the authentication-token lifecycle for a
// user-management service: signed JWT access tokens, durable rotating refresh
// tokens, explicit revocation (logout), and persistent brute-force lockout.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Refresh rotation and revocation insertion are atomic at the
// backing store, so multiple service instances may share one Redis or Postgres
// deployment without losing the single-use rotation guarantee.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types (TokenPair, Identity, UserRecord). Audit
// dispatch lives under internal/ and is re-exported through type aliases. The
// leaf packages token, refresh, revocation, lockout, password, and middleware
// are reusable on their own.
//
// # What this package must NOT do
//
//   - Expose store clients, key material, or encoding details in its public API.
//   - Reveal why a token or credential was rejected across the trust boundary:
//     callers see ErrUnauthenticated or ErrInvalidCredentials, never the cause.
//   - Route HTTP requests. The middleware package attaches identities; the
//     hosting router owns allow/deny decisions.
package authcore
