package episodes_test

import (
	"errors"
	"testing"

	"reelkey/internal/episodes"
)

func TestSummarizeAndRecords(t *testing.T) {
	results := []episodes.Result{
		{Index: "003", Key: "c", Status: episodes.StatusOK},
		{Index: "001", Key: "", Status: episodes.StatusMissing},
		{Index: "002", Key: "stale", Status: episodes.StatusFailed, Err: errors.New("boom")},
		{Index: "004", Status: episodes.StatusSkipped},
	}

	summary := episodes.Summarize(results)
	want := episodes.Summary{Total: 4, Succeeded: 1, Missing: 1, Failed: 1, Skipped: 1}
	if summary != want {
		t.Fatalf("Summarize = %+v, want %+v", summary, want)
	}

	records := episodes.Records(results)
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for i, wantIndex := range []string{"001", "002", "003", "004"} {
		if records[i].Index != wantIndex {
			t.Fatalf("record %d index = %q, want %q", i, records[i].Index, wantIndex)
		}
	}
	if records[1].Key != episodes.MissingKey {
		t.Fatalf("failed result must map to sentinel, got %q", records[1].Key)
	}
	if records[2].Key != "c" {
		t.Fatalf("ok result key = %q", records[2].Key)
	}
}
