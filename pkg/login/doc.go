// Package login exchanges credentials for tokens.
//
// Login verifies an email and password and returns an access token together
// with a refresh token. Refresh trades a refresh token for a new access token
// as long as the account still exists and is active. Signup creates an active
// account without roles.
//
// Example:
//
//	users := iam.NewIamService(userRepo, roleRepo, passwords)
//	tokens, _ := tokengenerator.NewTokenService(accessSecret, refreshSecret)
//	svc := login.NewLoginService(users, tokens, login.WithMetrics(m))
//	result, err := svc.Login(ctx, "admin@example.com", "admin123")
package login
