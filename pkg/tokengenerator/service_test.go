package tokengenerator

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testAccessSecret, testRefreshSecret, WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestService(t, clock)
	subject := uuid.NewString()

	access, accessExp, err := svc.IssueAccessToken(subject)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.Now().Add(time.Hour), accessExp, 0)

	refresh, refreshExp, err := svc.IssueRefreshToken(subject)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.Now().Add(7*24*time.Hour), refreshExp, 0)

	got, err := svc.Verify(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject, got)

	got, err = svc.Verify(refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, subject, got)
}

func TestVerifyAgainstOtherSecretFails(t *testing.T) {
	clock := &fakeClock{now: time.Now().Truncate(time.Second)}
	svc := newTestService(t, clock)

	access, _, err := svc.IssueAccessToken("user-1")
	require.NoError(t, err)
	refresh, _, err := svc.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = svc.Verify(access, RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    TokenKind
		life    time.Duration
		offset  time.Duration
		wantErr error
	}{
		{"access one second before expiry", AccessToken, time.Hour, time.Hour - time.Second, nil},
		{"access at expiry", AccessToken, time.Hour, time.Hour, ErrTokenExpired},
		{"access after expiry", AccessToken, time.Hour, 2 * time.Hour, ErrTokenExpired},
		{"refresh one second before expiry", RefreshToken, 7 * 24 * time.Hour, 7*24*time.Hour - time.Second, nil},
		{"refresh at expiry", RefreshToken, 7 * 24 * time.Hour, 7 * 24 * time.Hour, ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: issuedAt}
			svc := newTestService(t, clock)

			var token string
			var err error
			if tt.kind == AccessToken {
				token, _, err = svc.IssueAccessToken("user-1")
			} else {
				token, _, err = svc.IssueRefreshToken("user-1")
			}
			require.NoError(t, err)

			clock.Set(issuedAt.Add(tt.offset))
			subject, err := svc.Verify(token, tt.kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, subject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", subject)
		})
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now().Truncate(time.Second)}
	svc := newTestService(t, clock)

	valid, _, err := svc.IssueAccessToken("user-1")
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clock.Now().Add(time.Hour).Unix(),
		"iat": clock.Now().Unix(),
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrTokenInvalid},
		{"garbage", "not-a-token", ErrTokenInvalid},
		{"tampered signature", parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2])), ErrTokenInvalid},
		{"foreign secret", signWith(t, "someone-else", clock.Now()), ErrTokenInvalid},
		{"alg none", noneToken, ErrTokenInvalid},
		{"payload not base64", parts[0] + ".@@@." + parts[2], ErrTokenMalformed},
		{"payload not json", parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte("{nope")) + "." + parts[2], ErrTokenMalformed},
		{"missing subject", noSubject, ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token, AccessToken)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyUnknownKind(t *testing.T) {
	svc := newTestService(t, &fakeClock{now: time.Now()})
	_, err := svc.Verify("whatever", TokenKind("temp"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestConcurrentIssueVerify(t *testing.T) {
	svc, err := NewTokenService(testAccessSecret, testRefreshSecret)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject := uuid.NewString()
			token, _, err := svc.IssueAccessToken(subject)
			if !assert.NoError(t, err) {
				return
			}
			got, err := svc.Verify(token, AccessToken)
			assert.NoError(t, err)
			assert.Equal(t, subject, got)
		}()
	}
	wg.Wait()
}

func signWith(t *testing.T, secret string, now time.Time) string {
	t.Helper()
	token, _, err := NewJwtTokenGenerator(secret, func() time.Time { return now }).GenerateToken("user-1", time.Hour)
	require.NoError(t, err)
	return token
}
