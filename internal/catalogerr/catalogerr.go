// Package catalogerr defines the stable error taxonomy the lifecycle engine
// maps every collaborator error onto, and the HTTP status each type carries.
package catalogerr

import "fmt"

type Type string

const (
	TypeBadRequest        Type = "BadRequest"
	TypeNotFound          Type = "NotFound"
	TypeConflict          Type = "Conflict"
	TypeForbidden         Type = "Forbidden"
	TypeUnauthenticated   Type = "Unauthenticated"
	TypeWarehouseInactive Type = "WarehouseInactive"
	TypeStorageError      Type = "StorageError"
	TypeSecretError       Type = "SecretError"
	TypeTimeout           Type = "Timeout"
	TypeServiceUnavailable Type = "ServiceUnavailable"
	TypeInternal          Type = "Internal"
)

// StatusCode is the HTTP status a Type maps to, per spec §6/§7.
func (t Type) StatusCode() int {
	switch t {
	case TypeBadRequest:
		return 400
	case TypeUnauthenticated:
		return 401
	case TypeForbidden:
		return 403
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeWarehouseInactive:
		return 422
	case TypeTimeout:
		return 504
	case TypeServiceUnavailable:
		return 503
	case TypeStorageError, TypeSecretError, TypeInternal:
		return 500
	default:
		return 500
	}
}

// Error is the structured error every collaborator (backend, secret store,
// authorizer, storage profile) and the engine itself returns. The original
// cause is retained for logs but is never serialized to clients.
type Error struct {
	Code    int
	Type    Type
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(t Type, message string, cause error) *Error {
	return &Error{Code: t.StatusCode(), Type: t, Message: message, Cause: cause}
}

func BadRequest(message string, cause error) *Error { return newErr(TypeBadRequest, message, cause) }
func NotFound(message string) *Error                { return newErr(TypeNotFound, message, nil) }
func Conflict(message string) *Error                { return newErr(TypeConflict, message, nil) }
func Forbidden(reason string) *Error                 { return newErr(TypeForbidden, reason, nil) }
func Unauthenticated(message string) *Error          { return newErr(TypeUnauthenticated, message, nil) }
func WarehouseInactive(warehouse string) *Error {
	return newErr(TypeWarehouseInactive, fmt.Sprintf("warehouse %s is not active", warehouse), nil)
}
func StorageError(message string, cause error) *Error {
	return newErr(TypeStorageError, message, cause)
}
func SecretError(message string, cause error) *Error {
	return newErr(TypeSecretError, message, cause)
}
func Timeout(message string, cause error) *Error { return newErr(TypeTimeout, message, cause) }
func ServiceUnavailable(message string) *Error   { return newErr(TypeServiceUnavailable, message, nil) }
func Internal(message string, cause error) *Error {
	return newErr(TypeInternal, message, cause)
}

// As extracts an *Error from err, wrapping it as Internal if it is not
// already one of ours. Used at the engine boundary (§7 Propagation) to make
// sure every collaborator error is mapped onto the taxonomy before it
// reaches a caller.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		return ce
	}
	return Internal("unexpected error", err)
}
