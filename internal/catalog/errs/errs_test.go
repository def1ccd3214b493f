package errs

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeFailed},
		{"plain error", errors.New("plain"), CodeFailed},
		{"coded", New(CodeNoNetwork, "offline"), CodeNoNetwork},
		{"wrapped coded", errors.Wrap(New(CodeDownloadFailed, "dl"), "outer"), CodeDownloadFailed},
		{"context canceled", context.Canceled, CodeCancelled},
		{"deadline exceeded", context.DeadlineExceeded, CodeCancelled},
		{"with code", WithCode(context.Canceled, CodeCancelled), CodeCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(New(CodeInvalidFormat, "corrupt")) {
		t.Error("invalid-format must be fatal")
	}
	if !IsFatal(New(CodeWriteFailed, "disk full")) {
		t.Error("write-failed must be fatal")
	}
	if IsFatal(New(CodeNoNetwork, "offline")) {
		t.Error("no-network must degrade, not abort")
	}
	if IsFatal(nil) {
		t.Error("nil is never fatal")
	}
}

func TestWithCodeNil(t *testing.T) {
	if WithCode(nil, CodeFailed) != nil {
		t.Error("WithCode(nil) must stay nil")
	}
	if Wrap(nil, CodeFailed, "msg") != nil {
		t.Error("Wrap(nil) must stay nil")
	}
}

func TestErrorChainPreserved(t *testing.T) {
	base := errors.New("base")
	err := Wrap(base, CodeDownloadFailed, "download failed")
	if !errors.Is(err, base) {
		t.Error("wrapping must preserve the error chain")
	}
}
