package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

var b64 = base64.RawStdEncoding.Strict()

// Argon2Hasher implements PasswordHasher using Argon2id
type Argon2Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// Argon2Option configures an Argon2Hasher
type Argon2Option func(*Argon2Hasher)

// WithArgon2Params overrides the memory (KiB), iteration and parallelism parameters
func WithArgon2Params(memory, iterations uint32, parallelism uint8) Argon2Option {
	return func(h *Argon2Hasher) {
		h.memory = memory
		h.iterations = iterations
		h.parallelism = parallelism
	}
}

// NewArgon2Hasher creates a new Argon2Hasher with default parameters
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	h := &Argon2Hasher{
		memory:      64 * 1024, // 64MB
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash implements PasswordHasher.Hash
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.iterations, h.memory, h.parallelism, h.keyLength)

	// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.memory, h.iterations, h.parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify implements PasswordHasher.Verify
func (h *Argon2Hasher) Verify(password, encodedHash string) bool {
	p, salt, key, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1
}

// Recognizes implements PasswordHasher.Recognizes
func (h *Argon2Hasher) Recognizes(hashedPassword string) bool {
	return strings.HasPrefix(hashedPassword, argon2Prefix)
}

func decodeArgon2Hash(encodedHash string) (*Argon2Hasher, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, nil, errors.New("invalid hash format")
	}

	var version int
	if n, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || n != 1 || version != argon2.Version {
		return nil, nil, nil, errors.New("incompatible argon2id version")
	}
	if parts[2] != fmt.Sprintf("v=%d", version) {
		return nil, nil, nil, errors.New("invalid hash format")
	}

	p := &Argon2Hasher{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return nil, nil, nil, errors.New("invalid hash parameters")
	}
	if parts[3] != fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.iterations, p.parallelism) {
		return nil, nil, nil, errors.New("invalid hash parameters")
	}
	if p.iterations < 1 || p.parallelism < 1 || p.memory < 8*uint32(p.parallelism) {
		return nil, nil, nil, errors.New("invalid hash parameters")
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, nil, errors.New("invalid salt encoding")
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, errors.New("invalid hash encoding")
	}
	return p, salt, key, nil
}
