package credential

import (
	"log/slog"
	"strings"
	"sync"
)

// Algorithm names a password hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// PasswordHasher defines the interface for password hashing implementations
type PasswordHasher interface {
	// Hash hashes a password with a fresh random salt
	Hash(password string) (string, error)

	// Verify reports whether password matches hashedPassword.
	// A malformed hash never matches.
	Verify(password, hashedPassword string) bool

	// Recognizes reports whether hashedPassword was produced by this hasher
	Recognizes(hashedPassword string) bool
}

// Manager hashes new passwords with the current hasher and verifies stored
// hashes with whichever registered hasher produced them.
type Manager struct {
	current PasswordHasher
	hashers []PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewManager creates a Manager that hashes with current. Extra hashers are
// only used for verification of hashes they recognize.
func NewManager(current PasswordHasher, others ...PasswordHasher) *Manager {
	return &Manager{
		current: current,
		hashers: append([]PasswordHasher{current}, others...),
	}
}

// NewDefaultManager hashes with bcrypt at the given cost and still verifies
// argon2id hashes.
func NewDefaultManager(algorithm Algorithm, bcryptCost int) *Manager {
	bcryptHasher := NewBcryptHasher(WithCost(bcryptCost))
	argon2Hasher := NewArgon2Hasher()

	if algorithm == AlgorithmArgon2id {
		return NewManager(argon2Hasher, bcryptHasher)
	}
	if algorithm != "" && algorithm != AlgorithmBcrypt {
		slog.Warn("Unknown password hash algorithm, falling back to bcrypt", "algorithm", algorithm)
	}
	return NewManager(bcryptHasher, argon2Hasher)
}

// Hash hashes password with the current hasher.
func (m *Manager) Hash(password string) (string, error) {
	return m.current.Hash(password)
}

// Verify checks password against a stored hash. It returns false for an empty,
// unknown or malformed hash.
func (m *Manager) Verify(password, hashedPassword string) bool {
	if strings.TrimSpace(hashedPassword) == "" {
		return false
	}
	for _, h := range m.hashers {
		if h.Recognizes(hashedPassword) {
			return h.Verify(password, hashedPassword)
		}
	}
	return false
}

// VerifyDummy checks password against a fixed hash made by the current hasher
// and always returns false. Callers with no stored hash use it so that their
// response time matches a real Verify.
func (m *Manager) VerifyDummy(password string) bool {
	m.dummyOnce.Do(func() {
		hashed, err := m.current.Hash("usermgr-dummy-password")
		if err != nil {
			slog.Error("Failed to create dummy password hash", "err", err)
			return
		}
		m.dummyHash = hashed
	})
	if m.dummyHash != "" {
		m.current.Verify(password, m.dummyHash)
	}
	return false
}

// HashIfChanged returns the hash to persist for a password field. A nil
// newPassword means the field was not touched and currentHash is returned
// as is, so an existing hash is never hashed a second time.
func (m *Manager) HashIfChanged(currentHash string, newPassword *string) (string, bool, error) {
	if newPassword == nil {
		return currentHash, false, nil
	}
	hashed, err := m.Hash(*newPassword)
	if err != nil {
		return currentHash, false, err
	}
	return hashed, true, nil
}
