package episodes

import (
	"fmt"
	"sort"
	"strconv"
)

// MissingKey is the sentinel stored for episodes whose key could not be found.
const MissingKey = "NULL"

// Record pairs a zero-padded episode index with its player key.
type Record struct {
	Index string
	Key   string
}

// HasKey reports whether the record carries a real key.
func (r Record) HasKey() bool {
	return r.Key != "" && r.Key != MissingKey
}

// FormatIndex renders an episode number with fixed-width zero padding.
func FormatIndex(n, width int) string {
	if width <= 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%0*d", width, n)
}

// SortRecords orders records ascending by numeric index. Indices that do not
// parse as numbers sort after numeric ones, lexically.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, errA := strconv.Atoi(records[i].Index)
		b, errB := strconv.Atoi(records[j].Index)
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return records[i].Index < records[j].Index
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return records[i].Index < records[j].Index
		}
	})
}

// CountMissing returns how many records carry the sentinel key.
func CountMissing(records []Record) int {
	missing := 0
	for _, r := range records {
		if !r.HasKey() {
			missing++
		}
	}
	return missing
}
