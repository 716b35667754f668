// Package iam manages user accounts: creation, lookup, paging, role
// assignment, activation and last-login tracking.
//
// Storage goes through UserRepository, with in-memory and PostgreSQL
// implementations. Repositories keep role references only; IamService fills
// in the referenced roles (and their permissions) on every read, so a *User
// returned by the service can be handed straight to role.IsAuthorized.
//
//	repo := iam.NewPostgresUserRepository(pool)
//	svc := iam.NewIamService(repo, roleRepo, credential.NewDefaultManager(credential.AlgorithmBcrypt, 12))
//
//	u, err := svc.CreateUser(ctx, iam.CreateUserParams{Email: "a@example.com", Password: "secret"})
//	page, err := svc.ListUsers(ctx, iam.ListUsersParams{Search: "smith", SortBy: iam.SortByEmail})
//
// Passwords are hashed on create and again only when an update carries a new
// password.
package iam
