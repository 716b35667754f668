package credential

import (
	"errors"
	"log/slog"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// bcryptPattern matches a canonical modular-crypt bcrypt hash. The last salt
// character must leave its four unused bits zero.
var bcryptPattern = regexp.MustCompile(`^\$2[aby]\$[0-9]{2}\$[./A-Za-z0-9]{21}[.Oeu][./A-Za-z0-9]{31}$`)

// BcryptHasher implements PasswordHasher using bcrypt
type BcryptHasher struct {
	cost int
}

// BcryptOption configures a BcryptHasher
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt work factor. Values outside bcrypt's supported
// range fall back to DefaultBcryptCost.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			slog.Warn("Invalid bcrypt cost, using default", "cost", cost, "default", DefaultBcryptCost)
			cost = DefaultBcryptCost
		}
		h.cost = cost
	}
}

// NewBcryptHasher creates a new BcryptHasher
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cost returns the configured work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash implements PasswordHasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements PasswordHasher.Verify
func (h *BcryptHasher) Verify(password, hashedPassword string) bool {
	if !bcryptPattern.MatchString(hashedPassword) {
		return false
	}
	// Work factors above the configured one are refused to bound verification time.
	if cost, err := bcrypt.Cost([]byte(hashedPassword)); err != nil || cost > max(h.cost, DefaultBcryptCost) {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Debug("bcrypt compare failed", "err", err)
		}
		return false
	}
	return true
}

// Recognizes implements PasswordHasher.Recognizes
func (h *BcryptHasher) Recognizes(hashedPassword string) bool {
	return len(hashedPassword) > 3 && hashedPassword[0] == '$' && hashedPassword[1] == '2'
}
