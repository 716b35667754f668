package config

import (
	"github.com/tendant/simple-rbac/pkg/credential"
	"golang.org/x/crypto/bcrypt"
)

// PasswordConfig selects how new password hashes are produced. Hashes of the
// other algorithm still verify.
type PasswordConfig struct {
	Algorithm  string `env:"PASSWORD_HASH_ALGORITHM" env-default:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST" env-default:"12"`
}

// Manager builds the password manager for this configuration
func (p PasswordConfig) Manager() *credential.Manager {
	return credential.NewDefaultManager(credential.Algorithm(p.Algorithm), p.BcryptCost)
}

func (p PasswordConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireOneOf("PASSWORD_HASH_ALGORITHM", p.Algorithm,
			[]string{string(credential.AlgorithmBcrypt), string(credential.AlgorithmArgon2id)}),
		RequireInRange("BCRYPT_COST", p.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost),
	)
}
