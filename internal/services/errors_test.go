package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"reelkey/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "download", "abyss-dl", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"download", "abyss-dl", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrTimeout, "harvest", "fetch", "", nil), "timeout"},
		{fmt.Errorf("navigate: %w", context.DeadlineExceeded), "timeout"},
		{services.Wrap(services.ErrExternalTool, "download", "run", "", nil), "external_tool"},
		{services.Wrap(services.ErrNotFound, "harvest", "extract", "", nil), "not_found"},
		{context.Canceled, "canceled"},
		{errors.New("other"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
