package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2idID = "argon2id"

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltBytes  uint32 = 16
	minDigestSize uint32 = 16
)

// Params are the argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltBytes   uint32
	DigestBytes uint32
}

// DefaultParams returns interactive-login costs per the current OWASP
// recommendation for argon2id.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltBytes:   16,
		DigestBytes: 32,
	}
}

// Argon2id is a [Scheme] backed by x/crypto's argon2id. Stateless and safe
// for concurrent use.
type Argon2id struct {
	params Params
}

// NewArgon2id validates params and returns the scheme.
func NewArgon2id(params Params) (*Argon2id, error) {
	switch {
	case params.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory must be >= 8192 KiB")
	case params.Iterations < 1:
		return nil, errors.New("argon2 iterations must be >= 1")
	case params.Parallelism < 1:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case params.SaltBytes < minSaltBytes:
		return nil, errors.New("argon2 salt must be >= 16 bytes")
	case params.DigestBytes < minDigestSize:
		return nil, errors.New("argon2 digest must be >= 16 bytes")
	}
	return &Argon2id{params: params}, nil
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt.
func (s *Argon2id) Hash(password string) (string, error) {
	if err := CheckPolicy(password); err != nil {
		return "", err
	}

	salt := make([]byte, s.params.SaltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		s.params.Iterations,
		s.params.Memory,
		s.params.Parallelism,
		s.params.DigestBytes,
	)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idID,
		argon2.Version,
		s.params.Memory,
		s.params.Iterations,
		s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify recomputes the digest under the hash's own recorded parameters and
// compares in constant time.
func (s *Argon2id) Verify(password, encodedHash string) (bool, error) {
	parsed, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.iterations,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.digest)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1, nil
}

// NeedsRehash reports whether the hash was minted under costs weaker than
// the scheme's current parameters.
func (s *Argon2id) NeedsRehash(encodedHash string) (bool, error) {
	parsed, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}
	return parsed.memory < s.params.Memory ||
		parsed.iterations < s.params.Iterations ||
		parsed.parallelism < s.params.Parallelism ||
		uint32(len(parsed.digest)) != s.params.DigestBytes, nil
}

type decodedHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

func parseHash(encodedHash string) (*decodedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("malformed password hash")
	}
	if parts[1] != argon2idID {
		return nil, errors.New("unsupported password hash algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errors.New("malformed argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &decodedHash{}
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("malformed argon2 parameters")
		}
		v, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("malformed argon2 parameters")
		}
		switch kv[0] {
		case "m":
			out.memory = uint32(v)
		case "t":
			out.iterations = uint32(v)
		case "p":
			if v > 255 {
				return nil, errors.New("malformed argon2 parameters")
			}
			out.parallelism = uint8(v)
		default:
			return nil, errors.New("malformed argon2 parameters")
		}
	}
	if out.memory == 0 || out.iterations == 0 || out.parallelism == 0 {
		return nil, errors.New("malformed argon2 parameters")
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("malformed argon2 salt")
	}
	if len(out.salt) < int(minSaltBytes) {
		return nil, errors.New("argon2 salt too short")
	}
	if out.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("malformed argon2 digest")
	}
	if len(out.digest) < int(minDigestSize) {
		return nil, errors.New("argon2 digest too short")
	}

	return out, nil
}
