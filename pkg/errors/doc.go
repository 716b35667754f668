// Package errors provides structured errors with codes for the user management service.
//
// Every failure that reaches an HTTP handler is converted to an *Error whose
// code decides the response status:
//
//	NO_CREDENTIALS, INVALID_CREDENTIALS, INACTIVE_ACCOUNT,
//	NO_TOKEN, INVALID_TOKEN, UNAUTHENTICATED          -> 401
//	FORBIDDEN                                         -> 403
//	CONFLICT, INVALID_INPUT, VALIDATION_FAILED        -> 400
//	NOT_FOUND                                         -> 404
//	RATE_LIMIT_EXCEEDED                               -> 429
//	anything else                                     -> 500
//
// Usage:
//
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to load user")
//	if errors.IsCode(err, errors.ErrCodeNotFound) { ... }
//	errors.WriteError(w, r, err)
//
// WriteError never leaks the message of an unstructured or internal error.
package errors
