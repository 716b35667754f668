package tokengenerator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed, correctly signed token past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned when the signature, algorithm or token structure is wrong
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMalformed is returned when the claims payload cannot be decoded
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the claim set carried by every token: sub, exp and iat.
type Claims struct {
	jwt.RegisteredClaims
}

// JwtTokenGenerator signs and parses HS256 tokens with a single secret
type JwtTokenGenerator struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator. A nil clock uses time.Now.
func NewJwtTokenGenerator(secret string, now func() time.Time) *JwtTokenGenerator {
	if now == nil {
		now = time.Now
	}
	return &JwtTokenGenerator{
		secret: []byte(secret),
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}
}

// GenerateToken creates a signed token for subject that expires after expiry
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration) (string, time.Time, error) {
	issuedAt := g.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(g.secret)
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken verifies tokenStr and returns its claims. Errors wrap one of
// ErrTokenExpired, ErrTokenInvalid or ErrTokenMalformed.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := g.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return nil, classify(tokenStr, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return claims, nil
}

func classify(tokenStr string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed) && payloadUndecodable(tokenStr):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
}

// payloadUndecodable reports whether a three-segment token carries a claims
// segment that is not base64url-encoded JSON claims.
func payloadUndecodable(tokenStr string) bool {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return true
	}
	var claims Claims
	return json.Unmarshal(raw, &claims) != nil
}
