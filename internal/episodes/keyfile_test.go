package episodes_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelkey/internal/episodes"
)

func TestFormatIndex(t *testing.T) {
	cases := []struct {
		n, width int
		want     string
	}{
		{1, 3, "001"},
		{42, 3, "042"},
		{167, 3, "167"},
		{1234, 3, "1234"},
		{7, 0, "7"},
	}
	for _, tc := range cases {
		if got := episodes.FormatIndex(tc.n, tc.width); got != tc.want {
			t.Fatalf("FormatIndex(%d, %d) = %q, want %q", tc.n, tc.width, got, tc.want)
		}
	}
}

func TestWriteKeyFileSortsNumerically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.txt")
	records := []episodes.Record{
		{Index: "010", Key: "k10"},
		{Index: "002", Key: episodes.MissingKey},
		{Index: "1000", Key: "k1000"},
		{Index: "001", Key: "k1"},
	}
	if err := episodes.WriteKeyFile(path, records); err != nil {
		t.Fatalf("WriteKeyFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read key file: %v", err)
	}
	want := "NUM:KEY\n001:k1\n002:NULL\n010:k10\n1000:k1000\n"
	if string(data) != want {
		t.Fatalf("key file content:\n%s\nwant:\n%s", data, want)
	}
	if records[0].Index != "010" {
		t.Fatal("WriteKeyFile must not reorder the caller's slice")
	}
}

func TestWriteKeyFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.txt")
	if err := os.WriteFile(path, []byte("stale content that is much longer than the replacement\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := episodes.WriteKeyFile(path, []episodes.Record{{Index: "001", Key: "a"}}); err != nil {
		t.Fatalf("WriteKeyFile: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "NUM:KEY\n001:a\n" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestParseKeyFileSkipsHeaderAndMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"001:should-be-treated-as-header",
		"001:abc123",
		"",
		"garbage",
		"002:NULL",
		"003:has:colons",
		":nokey",
		"001:dup",
		"  003:xyz789  ",
	}, "\n")

	parsed, err := episodes.ParseKeyFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseKeyFile: %v", err)
	}
	want := []episodes.Record{
		{Index: "001", Key: "abc123"},
		{Index: "002", Key: "NULL"},
		{Index: "003", Key: "xyz789"},
	}
	if len(parsed.Records) != len(want) {
		t.Fatalf("records = %+v, want %+v", parsed.Records, want)
	}
	for i := range want {
		if parsed.Records[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, parsed.Records[i], want[i])
		}
	}
	if len(parsed.Skipped) != 4 {
		t.Fatalf("expected 4 skipped lines, got %+v", parsed.Skipped)
	}
	if parsed.Skipped[0].Line != 4 || parsed.Skipped[0].Text != "garbage" {
		t.Fatalf("unexpected first skipped line: %+v", parsed.Skipped[0])
	}
	if parsed.Skipped[3].Reason != "duplicate index" {
		t.Fatalf("expected duplicate index reason, got %+v", parsed.Skipped[3])
	}
	if parsed.Records[1].HasKey() {
		t.Fatal("sentinel record should report no key")
	}
}

func TestKeyFileRoundTripThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "episodes.txt")
	in := []episodes.Record{{Index: "003", Key: "c"}, {Index: "001", Key: "a"}, {Index: "002", Key: ""}}
	if err := episodes.WriteKeyFile(path, in); err != nil {
		t.Fatalf("WriteKeyFile: %v", err)
	}
	parsed, err := episodes.ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile: %v", err)
	}
	if len(parsed.Records) != 3 || parsed.Records[0].Index != "001" || parsed.Records[1].Key != episodes.MissingKey {
		t.Fatalf("unexpected records %+v", parsed.Records)
	}
	if episodes.CountMissing(parsed.Records) != 1 {
		t.Fatalf("expected one missing key")
	}
}

func TestReadKeyFileMissing(t *testing.T) {
	if _, err := episodes.ReadKeyFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing key file")
	}
}
