package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("disk on fire")
	err := WrapError(ErrCStorageWrite, cause).In("lsm-0", "put").At(model.ColumnTransaction, "A999")

	if !errors.Is(err, ErrStorageWrite) {
		t.Errorf("Expected error to match ErrStorageWrite")
	}
	if errors.Is(err, ErrStorageRead) {
		t.Errorf("Error must not match a different code")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to unwrap to its cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, ErrStorageWrite) {
		t.Errorf("Expected wrapped error to match ErrStorageWrite")
	}
	if CodeOf(wrapped) != ErrCStorageWrite {
		t.Errorf("CodeOf returned %s", CodeOf(wrapped))
	}
	if CodeOf(cause) != 0 {
		t.Errorf("CodeOf of a foreign error must be 0")
	}
}

func TestErrorMessage(t *testing.T) {
	longKey := model.Indexable(strings.Repeat("9", 2673))
	err := NewError(ErrCStorageRead, "checksum mismatch").In("lsm-0", "get").At(model.ColumnTransaction, longKey)

	msg := err.Error()
	for _, part := range []string{"StorageReadError", "provider=lsm-0", "op=get", "column=transaction", "checksum mismatch"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Expected %q in error message %q", part, msg)
		}
	}
	if len(msg) > 200 {
		t.Errorf("Long keys should be truncated in messages, got %d chars", len(msg))
	}
}

func TestAnnotate(t *testing.T) {
	if Annotate(nil, ErrCStorageWrite, "p", "put", 0, "") != nil {
		t.Errorf("Annotate(nil) must be nil")
	}

	plain := errors.New("boom")
	err := Annotate(plain, ErrCStorageRead, "mem", "get", model.ColumnTag, "k")
	if CodeOf(err) != ErrCStorageRead {
		t.Errorf("Foreign errors should get the fallback code, got %s", CodeOf(err))
	}
	if !errors.Is(err, plain) {
		t.Errorf("Annotated error should unwrap to the original")
	}

	orig := NewError(ErrCAlreadyClosed, "closed").In("lsm-0", "")
	annotated := Annotate(orig, ErrCStorageWrite, "other", "delete", model.ColumnTag, "k")
	var pe *Error
	if !errors.As(annotated, &pe) {
		t.Fatalf("Expected *Error")
	}
	if pe.Code != ErrCAlreadyClosed || pe.Provider != "lsm-0" || pe.Op != "delete" || pe.Column != model.ColumnTag {
		t.Errorf("Annotate should only fill missing fields, got %+v", pe)
	}
	if orig.Op != "" {
		t.Errorf("Annotate must not modify the original error")
	}
}

func TestFeatures(t *testing.T) {
	fs := Features(FeatureGet | FeatureScan | FeatureDurable)
	if len(fs) != 3 || fs[0] != FeatureGet || fs[1] != FeatureScan || fs[2] != FeatureDurable {
		t.Errorf("Unexpected features %v", fs)
	}
	if FeatureClearMetadata.String() != "ClearMetadata" {
		t.Errorf("Unexpected feature name %s", FeatureClearMetadata)
	}
}
