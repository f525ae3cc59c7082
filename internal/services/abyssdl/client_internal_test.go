package abyssdl

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "fake-dl")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return stub
}

type lineRecorder struct {
	mu    sync.Mutex
	lines map[Stream][]string
}

func (r *lineRecorder) add(stream Stream, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = map[Stream][]string{}
	}
	r.lines[stream] = append(r.lines[stream], line)
}

func runWithDeadline(t *testing.T, stub string, onLine func(Stream, string)) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- commandExecutor{}.Run(context.Background(), stub, nil, onLine)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		t.Fatal("executor did not return after the process exited")
		return nil
	}
}

func TestCommandExecutorSplitsCarriageReturns(t *testing.T) {
	stub := writeStub(t, "printf '10%%\\r20%%\\r30%%\\ndone\\n'\nprintf 'warn\\r' >&2\n")
	rec := &lineRecorder{}
	if err := runWithDeadline(t, stub, rec.add); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := rec.lines[Stdout]
	want := []string{"10%", "20%", "30%", "done"}
	if len(got) != len(want) {
		t.Fatalf("stdout lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stdout lines = %q, want %q", got, want)
		}
	}
	if errLines := rec.lines[Stderr]; len(errLines) != 1 || errLines[0] != "warn" {
		t.Fatalf("stderr lines = %q", errLines)
	}
}

func TestCommandExecutorSurvivesLongCarriageReturnOutput(t *testing.T) {
	stub := writeStub(t, "head -c 2097152 /dev/zero | tr '\\000' '\\r'\necho finished\nexit 0\n")
	rec := &lineRecorder{}
	if err := runWithDeadline(t, stub, rec.add); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := rec.lines[Stdout]; len(got) != 1 || got[0] != "finished" {
		t.Fatalf("stdout lines = %q", got)
	}
}

func TestCommandExecutorDrainsOversizedLine(t *testing.T) {
	stub := writeStub(t, "head -c 2097152 /dev/zero | tr '\\000' 'x' >&2\nexit 4\n")
	err := runWithDeadline(t, stub, nil)
	var procErr *exec.ExitError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected process exit error, got %v", err)
	}
	if procErr.ExitCode() != 4 {
		t.Fatalf("exit code = %d, want 4", procErr.ExitCode())
	}
}
