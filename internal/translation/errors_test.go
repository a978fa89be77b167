package translation

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	t.Parallel()

	inference := newError(CodeInferenceError, StageTranslating, "fast", errors.New("cuda out of memory"))
	failed := newError(CodeTranslationFailed, StageTranslating, "fast", inference)
	wrapped := fmt.Errorf("translate prompt: %w", failed)

	if !errors.Is(wrapped, ErrTranslationFailed) {
		t.Fatalf("expected translation_failed to match")
	}
	if !errors.Is(wrapped, ErrInferenceError) {
		t.Fatalf("expected wrapped inference_error to match")
	}
	if errors.Is(wrapped, ErrBackendUnavailable) {
		t.Fatalf("did not expect backend_unavailable to match")
	}

	var typed *Error
	if !errors.As(wrapped, &typed) || typed.Stage != StageTranslating || typed.Backend != "fast" {
		t.Fatalf("unexpected typed error: %+v", typed)
	}
}

func TestErrorJoinsBothUnavailableCauses(t *testing.T) {
	t.Parallel()

	fast := newError(CodeBackendUnavailable, StageTranslating, "fast", errors.New("runtime down"))
	quality := newError(CodeBackendUnavailable, StageTranslating, "high_quality", errors.New("model missing"))
	failed := newError(CodeTranslationFailed, StageTranslating, "high_quality", errors.Join(fast, quality))

	if !errors.Is(failed, ErrBackendUnavailable) {
		t.Fatalf("expected backend_unavailable cause")
	}
	want := "translation_failed at translating (backend=high_quality): backend_unavailable at translating (backend=fast): runtime down\nbackend_unavailable at translating (backend=high_quality): model missing"
	if failed.Error() != want {
		t.Fatalf("unexpected message: %q", failed.Error())
	}
}

func TestInvalidInputNamesStage(t *testing.T) {
	t.Parallel()

	err := invalidInput("text is required")
	if err.Error() != "invalid_input at received (backend=none): text is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
