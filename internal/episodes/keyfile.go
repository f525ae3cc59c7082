package episodes

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KeyFileHeader is the first line of every key file. Readers discard it
// without inspecting its contents.
const KeyFileHeader = "NUM:KEY"

// SkippedLine describes a key file line that did not yield a record.
type SkippedLine struct {
	Line   int
	Text   string
	Reason string
}

// KeyFile is the parsed content of a key file in file order.
type KeyFile struct {
	Records []Record
	Skipped []SkippedLine
}

// EncodeKeyFile serializes records as the header line followed by one
// index:key line per record, in the order given.
func EncodeKeyFile(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, KeyFileHeader); err != nil {
		return err
	}
	for _, r := range records {
		key := r.Key
		if key == "" {
			key = MissingKey
		}
		if _, err := fmt.Fprintf(bw, "%s:%s\n", r.Index, key); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteKeyFile sorts records by numeric index and replaces path with their
// serialization. The file is written to a temporary sibling first and renamed
// into place so readers never observe a partial file.
func WriteKeyFile(path string, records []Record) error {
	sorted := append([]Record(nil), records...)
	SortRecords(sorted)

	var buf bytes.Buffer
	if err := EncodeKeyFile(&buf, sorted); err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

// ParseKeyFile reads key file content. The first line is a header and is
// discarded. Blank lines are ignored; lines that are not exactly two
// non-empty colon-separated fields, or repeat an index already seen, are
// reported in Skipped.
func ParseKeyFile(r io.Reader) (*KeyFile, error) {
	result := &KeyFile{}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			result.Skipped = append(result.Skipped, SkippedLine{Line: lineNo, Text: line, Reason: "expected index:key"})
			continue
		}
		index := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if index == "" || key == "" {
			result.Skipped = append(result.Skipped, SkippedLine{Line: lineNo, Text: line, Reason: "empty index or key"})
			continue
		}
		if _, dup := seen[index]; dup {
			result.Skipped = append(result.Skipped, SkippedLine{Line: lineNo, Text: line, Reason: "duplicate index"})
			continue
		}
		seen[index] = struct{}{}
		result.Records = append(result.Records, Record{Index: index, Key: key})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan key file: %w", err)
	}
	return result, nil
}

// ReadKeyFile opens and parses the key file at path.
func ReadKeyFile(path string) (*KeyFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer file.Close()
	return ParseKeyFile(file)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
