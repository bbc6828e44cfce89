package errors

import (
	stdErrors "errors"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
	}{
		{code: CodeValidation, publicMsg: "validation failed"},
		{code: CodeUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, publicMsg: "conflict detected"},
		{code: CodeDependency, publicMsg: "storefront service unavailable", retryable: true},
		{code: CodeStorage, publicMsg: "local storage unavailable", retryable: true},
		{code: CodeInternal, publicMsg: "internal error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal error" {
		t.Fatalf("expected internal metadata, got %q", meta.PublicMessage)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: timeout")
	err := Wrap(CodeDependency, cause, "fetch cart")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be discoverable")
	}
	if typed := As(err); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error: %v", err)
	}
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeStorage, nil, "save record")
	if err.Unwrap() != nil {
		t.Fatalf("expected no cause")
	}
	if err.Error() != "STORAGE_ERROR: save record" {
		t.Fatalf("unexpected rendering %q", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeDependency, "")); got != "storefront service unavailable" {
		t.Fatalf("expected public fallback, got %q", got)
	}
	if got := UserMessage(New(CodeValidation, "quantity must be positive")); got != "quantity must be positive" {
		t.Fatalf("expected specific message, got %q", got)
	}
	if got := UserMessage(stdErrors.New("plain")); got != "plain" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty for nil, got %q", got)
	}
}
