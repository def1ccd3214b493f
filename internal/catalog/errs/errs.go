// Package errs defines the error taxonomy shared by the catalog core and
// all backends. Every failure that crosses a backend boundary carries a
// Code so the dispatcher can classify it without string matching.
package errs

import (
	"context"

	"github.com/pkg/errors"
)

// Code classifies a catalog failure.
type Code int

const (
	// CodeFailed is the generic failure code.
	CodeFailed Code = iota
	// CodeNoNetwork means the network was required but unavailable.
	CodeNoNetwork
	// CodeInvalidFormat means persisted or remote data could not be parsed.
	CodeInvalidFormat
	// CodeNotSupported means no backend can serve the request.
	CodeNotSupported
	// CodeAuthFailed means the backend rejected the client's credentials.
	CodeAuthFailed
	// CodeNoSecurity means required integrity data (e.g. a checksum) is missing.
	CodeNoSecurity
	// CodeCancelled means the job was cancelled; never user-facing as an error.
	CodeCancelled
	// CodeDownloadFailed means a payload download failed.
	CodeDownloadFailed
	// CodeWriteFailed means local state could not be written.
	CodeWriteFailed
)

func (c Code) String() string {
	switch c {
	case CodeNoNetwork:
		return "no-network"
	case CodeInvalidFormat:
		return "invalid-format"
	case CodeNotSupported:
		return "not-supported"
	case CodeAuthFailed:
		return "auth-failed"
	case CodeNoSecurity:
		return "no-security"
	case CodeCancelled:
		return "cancelled"
	case CodeDownloadFailed:
		return "download-failed"
	case CodeWriteFailed:
		return "write-failed"
	default:
		return "failed"
	}
}

type codedError struct {
	code Code
	err  error
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

// New creates a new error with the given code and message.
func New(code Code, msg string) error {
	return &codedError{code: code, err: errors.New(msg)}
}

// Newf creates a new error with the given code and formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return &codedError{code: code, err: errors.Errorf(format, args...)}
}

// WithCode annotates err with a code, keeping the original chain.
func WithCode(err error, code Code) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// Wrap annotates err with a code and a message.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: errors.Wrap(err, msg)}
}

// CodeOf extracts the Code from err. Context cancellation maps to
// CodeCancelled; anything unannotated maps to CodeFailed.
func CodeOf(err error) Code {
	if err == nil {
		return CodeFailed
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeFailed
}

// IsFatal reports whether err is a hard infrastructure failure that must
// abort the enclosing operation rather than degrade to a warning.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidFormat, CodeWriteFailed:
		return true
	default:
		return false
	}
}
