package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsNumericColumnsAndPadsShortRows(t *testing.T) {
	out := renderTable(episodeColumns, [][]string{{"7", "abc"}, {"12"}})

	for _, want := range []string{"EPISODE", "│       7 │ abc │", "│      12 │     │"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if renderTable(nil, [][]string{{"x"}}) != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestFormatSize(t *testing.T) {
	if got := formatSize(0); got != "" {
		t.Fatalf("formatSize(0) = %q", got)
	}
	if got := formatSize(3 * 1024 * 1024); got != "3.0 MiB" {
		t.Fatalf("formatSize = %q", got)
	}
}
