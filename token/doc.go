// Package token implements the stateless bearer-token codec: issuance and
// verification of compact signed JWTs for the access and refresh token types.
//
// # Key separation
//
// Access and refresh tokens are signed with distinct HS256 keys, so compromise
// of one signing capability cannot forge the other token type. A token signed
// with the refresh key fails access verification at the signature check, before
// its claims are ever consulted, and vice versa.
//
// # Numeric semantics
//
// A token is valid at its exact issue instant and invalid at its exact expiry
// instant: exp <= now means expired. Expiry travels as a standard RFC 7519
// NumericDate; verification compares against wall-clock time with optional
// leeway.
//
// # Architecture boundaries
//
// This package owns signing, parsing, and the failure taxonomy (ErrMalformed,
// ErrSignatureInvalid, ErrExpired, ErrWrongType). The taxonomy exists for
// internal logging; collapsing it into a single unauthenticated outcome at the
// trust boundary is the Engine's job.
//
// # What this package must NOT do
//
//   - Access Redis, Postgres, or any I/O.
//   - Consult revocation state; a verified token may still be revoked.
//   - Import authcore or any sibling package.
package token
