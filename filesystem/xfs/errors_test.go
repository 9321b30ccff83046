package xfs

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageIncludesFrames(t *testing.T) {
	err := errInvalidData("bad field %d", 7)
	err = Annotate(err, "outer").(*Error)
	msg := err.Error()
	if msg == "" {
		t.Fatalf("Error() returned empty string")
	}
	if !strings.Contains(msg, "outer") || !strings.Contains(msg, "bad field 7") {
		t.Errorf("Error() = %q, want it to mention the frame and the message", msg)
	}
}

func TestAnnotatePreservesKind(t *testing.T) {
	err := errNotFound("missing")
	annotated := Annotate(err, "caller")
	kind, ok := KindOf(annotated)
	if !ok || kind != KindNotFound {
		t.Errorf("Annotate should preserve Kind, got %v ok=%v", kind, ok)
	}
}

func TestAnnotatePassesThroughForeignErrors(t *testing.T) {
	foreign := errors.New("not ours")
	if got := Annotate(foreign, "frame"); got != foreign {
		t.Errorf("Annotate should return non-package errors unchanged")
	}
}

func TestKindOfOnForeignError(t *testing.T) {
	if _, ok := KindOf(errors.New("nope")); ok {
		t.Errorf("KindOf should report ok=false for a non-package error")
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := errNotFound("first")
	b := errNotFound("second")
	if !errors.Is(a, b) {
		t.Errorf("two errors of the same Kind should satisfy errors.Is")
	}
	if errors.Is(a, errInvalidData("x")) {
		t.Errorf("errors of different Kind should not satisfy errors.Is")
	}
}

func TestErrAbortRequestedIs(t *testing.T) {
	wrapped := wrapErr(KindAbortRequested, DomainRuntime, nil, "aborted")
	if !errors.Is(wrapped, ErrAbortRequested) {
		t.Errorf("expected errors.Is match against ErrAbortRequested")
	}
}

func TestKindStringCoversAllValues(t *testing.T) {
	kinds := []Kind{
		KindInvalidArgument, KindIOError, KindSignatureMismatch, KindChecksumMismatch,
		KindUnsupportedVersion, KindUnsupportedValue, KindInvalidData, KindNotFound,
		KindOutOfBounds, KindAbortRequested,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		if s == "" || s == "Unknown" {
			t.Errorf("Kind %d stringified to %q", k, s)
		}
		if seen[s] {
			t.Errorf("duplicate Kind string %q", s)
		}
		seen[s] = true
	}
}
