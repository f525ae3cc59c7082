package episodes

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ScriptOptions controls the commands emitted by the script generator.
type ScriptOptions struct {
	OutputDir string
	// Command is the downloader invocation prefix, e.g. java -jar abyss-dl.jar.
	Command []string
	Quality string
}

// EncodeScript writes a bash script that creates the output directory and
// then, per record, either announces and runs the downloader or announces
// the skip. Every record contributes exactly two lines after the mkdir line.
func EncodeScript(w io.Writer, records []Record, opts ScriptOptions) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#!/bin/bash")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "# Create output directory if it doesn't exist")
	fmt.Fprintf(bw, "mkdir -p %s\n", shellQuote(opts.OutputDir))
	fmt.Fprintln(bw)

	prefix := make([]string, 0, len(opts.Command))
	for _, part := range opts.Command {
		prefix = append(prefix, shellQuote(part))
	}
	for _, r := range records {
		if !r.HasKey() {
			fmt.Fprintf(bw, "echo \"Skipping Episode %s (Key not found)\"\n", r.Index)
			fmt.Fprintf(bw, "# %s: no key, nothing to download\n", r.Index)
			continue
		}
		output := filepath.Join(opts.OutputDir, r.Index+".mp4")
		args := append(append([]string(nil), prefix...),
			shellQuote(r.Key), shellQuote(opts.Quality), "-o", shellQuote(output))
		fmt.Fprintf(bw, "echo \"Downloading Episode %s...\"\n", r.Index)
		fmt.Fprintln(bw, strings.Join(args, " "))
	}
	return bw.Flush()
}

// WriteScript regenerates the script at path and marks it executable.
func WriteScript(path string, records []Record, opts ScriptOptions) error {
	var buf bytes.Buffer
	if err := EncodeScript(&buf, records, opts); err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes(), 0o755)
}

// shellQuote leaves plain words untouched and single-quotes anything else.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./=+,:@%", r):
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
