package episodes_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelkey/internal/episodes"
)

func scriptBody(t *testing.T, content string) []string {
	t.Helper()
	var body []string
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
		case strings.HasPrefix(line, "#!"):
		case strings.HasPrefix(line, "# Create output directory"):
		default:
			body = append(body, line)
		}
	}
	return body
}

func TestWriteScriptEndToEndExample(t *testing.T) {
	dir := t.TempDir()
	parsed, err := episodes.ParseKeyFile(strings.NewReader("NUM:KEY\n001:abc123\n002:NULL\n003:xyz789\n"))
	if err != nil {
		t.Fatalf("ParseKeyFile: %v", err)
	}

	path := filepath.Join(dir, "download.sh")
	opts := episodes.ScriptOptions{
		OutputDir: "/videos/show",
		Command:   []string{"java", "-jar", "abyss-dl.jar"},
		Quality:   "h",
	}
	if err := episodes.WriteScript(path, parsed.Records, opts); err != nil {
		t.Fatalf("WriteScript: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat script: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable script, mode %v", info.Mode())
	}

	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.HasPrefix(content, "#!/bin/bash\n") {
		t.Fatalf("missing shebang: %q", content)
	}

	body := scriptBody(t, content)
	if len(body) != 1+2*len(parsed.Records) {
		t.Fatalf("expected %d body lines, got %d:\n%s", 1+2*len(parsed.Records), len(body), strings.Join(body, "\n"))
	}
	if body[0] != "mkdir -p /videos/show" {
		t.Fatalf("first body line = %q", body[0])
	}
	for _, want := range []string{
		"java -jar abyss-dl.jar abc123 h -o /videos/show/001.mp4",
		"java -jar abyss-dl.jar xyz789 h -o /videos/show/003.mp4",
		`echo "Skipping Episode 002 (Key not found)"`,
		`echo "Downloading Episode 001..."`,
	} {
		if !strings.Contains(content, want+"\n") {
			t.Fatalf("script missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "NULL h -o") {
		t.Fatalf("sentinel key must never reach a command: %s", content)
	}
}

func TestEncodeScriptQuotesUnsafeValues(t *testing.T) {
	var sb strings.Builder
	records := []episodes.Record{{Index: "001", Key: "a b;rm"}}
	if err := episodes.EncodeScript(&sb, records, episodes.ScriptOptions{
		OutputDir: "/tmp/my videos",
		Command:   []string{"abyss-dl"},
		Quality:   "h",
	}); err != nil {
		t.Fatalf("EncodeScript: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "mkdir -p '/tmp/my videos'") {
		t.Fatalf("expected quoted output dir: %s", out)
	}
	if !strings.Contains(out, "abyss-dl 'a b;rm' h -o '/tmp/my videos/001.mp4'") {
		t.Fatalf("expected quoted key and path: %s", out)
	}
}
