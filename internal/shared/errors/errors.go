package errors

import "errors"

// Domain errors
var (
	// Archive errors
	ErrArchiveNotFound = errors.New("archive not found")
	ErrArchiveInvalid  = errors.New("archive is not a readable zip file")
	ErrNoSessionLog    = errors.New("folder has no session log")
	ErrMemberTooLarge  = errors.New("archive member exceeds extraction limit")

	// Session log errors
	ErrInvalidEntry   = errors.New("invalid session log entry")
	ErrInvalidRequest = errors.New("invalid network request record")

	// Result errors
	ErrResultNotFound  = errors.New("result document not found")
	ErrEmptyFolder     = errors.New("folder name cannot be empty")
	ErrEmptyScanID     = errors.New("scan ID cannot be empty")
	ErrResultImmutable = errors.New("result already finalized")

	// Audit trail errors
	ErrAuditTrailNotFound   = errors.New("audit trail not found")
	ErrAuditTrailNotSealed  = errors.New("audit trail is not sealed")
	ErrInvalidHashAlgorithm = errors.New("invalid hash algorithm")

	// Cookie knowledge base errors
	ErrCookieDBUnavailable = errors.New("cookie database unavailable")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsafePath   = errors.New("unsafe path")
)
