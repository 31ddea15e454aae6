// Package errors provides structured error handling for the write path and API surface.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidArgument represents a malformed or incomplete request.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeCommandRejected represents a domain-level command rejection.
	CodeCommandRejected Code = "COMMAND_REJECTED"

	// CodeVersionConflict represents an optimistic-lock mismatch on append.
	CodeVersionConflict Code = "VERSION_CONFLICT"

	// CodeNotFound represents a missing persistence record.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStorageUnavailable represents a persistence failure after retries.
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// HTTPStatus maps an error code to an HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeCommandRejected:
		return http.StatusUnprocessableEntity
	case CodeVersionConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
