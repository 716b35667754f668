// Package tokengenerator issues and verifies the signed JWTs used by the
// service.
//
// Access tokens live for one hour and refresh tokens for seven days. Each kind
// is signed with its own HS256 secret. Tokens carry only sub, exp and iat.
// Verification errors wrap ErrTokenExpired, ErrTokenInvalid or
// ErrTokenMalformed so callers can use errors.Is.
//
//	svc, err := tokengenerator.NewTokenService(accessSecret, refreshSecret,
//	    tokengenerator.WithAccessTokenExpiry("30m"))
//	token, expiresAt, err := svc.IssueAccessToken(userID.String())
//	subject, err := svc.Verify(token, tokengenerator.AccessToken)
//
// Refresh tokens are not rotated or revoked on use.
package tokengenerator
