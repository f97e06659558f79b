// Package password implements credential hashing and verification.
//
// Hashes travel in PHC string format, so the parameters a hash was created
// with are recoverable at verify time and cost upgrades roll out gradually:
// NeedsRehash flags hashes minted under weaker parameters and the caller
// re-hashes on the next successful login.
//
// # What this package must NOT do
//
//   - Normalize or otherwise transform the password bytes.
//   - Leak, via error or timing, whether a mismatch was in salt, cost, or
//     digest.
//   - Import authcore or any sibling package.
package password

import "errors"

// ErrPolicy is returned by CheckPolicy for passwords below the minimum
// length.
var ErrPolicy = errors.New("password below minimum length")

// MinLength is the minimum accepted password length in bytes.
const MinLength = 8

// Scheme hashes and verifies credentials. Implementations must compare
// digests in constant time.
type Scheme interface {
	// Hash derives a PHC-encoded hash for the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash. A malformed
	// hash is an error; a well-formed mismatch is (false, nil).
	Verify(password, encodedHash string) (bool, error)

	// NeedsRehash reports whether the hash was minted under parameters weaker
	// than the scheme's current ones.
	NeedsRehash(encodedHash string) (bool, error)
}

// CheckPolicy validates a candidate password against the registration
// policy. Raw byte length, no Unicode normalization.
func CheckPolicy(password string) error {
	if len(password) < MinLength {
		return ErrPolicy
	}
	return nil
}
