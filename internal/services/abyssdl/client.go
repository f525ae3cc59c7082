package abyssdl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"reelkey/internal/logging"
	"reelkey/internal/services"
)

const (
	stageName     = "download"
	stderrTailMax = 40
)

// Stream identifies which output pipe a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for downloader output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "abyss-dl")
	}
}

// Client runs the external downloader.
type Client struct {
	command []string
	quality string
	exec    Executor
	logger  *slog.Logger
}

// ExitError reports a non-zero downloader exit with the captured stderr tail.
type ExitError struct {
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Code >= 0 {
		return fmt.Sprintf("downloader exited with status %d", e.Code)
	}
	return fmt.Sprintf("downloader failed: %v", e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// New constructs a client. command is the downloader argv prefix, for example
// ["java", "-jar", "abyss-dl.jar"].
func New(command []string, quality string, opts ...Option) (*Client, error) {
	cleaned := make([]string, 0, len(command))
	for _, part := range command {
		if part = strings.TrimSpace(part); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("downloader command required")
	}
	quality = strings.TrimSpace(quality)
	if quality == "" {
		return nil, errors.New("downloader quality required")
	}
	client := &Client{
		command: cleaned,
		quality: quality,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Args returns the full argv (without the binary) for one download.
func (c *Client) Args(key, outputPath string) []string {
	args := make([]string, 0, len(c.command)+4)
	args = append(args, c.command[1:]...)
	return append(args, key, c.quality, "-o", outputPath)
}

// Download runs the downloader for key, writing to outputPath.
func (c *Client) Download(ctx context.Context, key, outputPath string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return services.Wrap(services.ErrValidation, stageName, "run downloader", "empty key", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrValidation, stageName, "run downloader", "empty output path", nil)
	}

	logger := logging.WithContext(ctx, c.logger)
	tail := newLineTail(stderrTailMax)
	args := c.Args(key, outputPath)
	logger.Debug("starting downloader",
		logging.String("binary", c.command[0]),
		logging.String("args", strings.Join(args, " ")),
	)

	err := c.exec.Run(ctx, c.command[0], args, func(stream Stream, line string) {
		if stream == Stderr {
			tail.add(line)
		}
		logger.Debug("downloader output", logging.String("stream", string(stream)), logging.String("line", line))
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	exitErr := &ExitError{Code: -1, Stderr: tail.String(), Err: err}
	var procErr *exec.ExitError
	if errors.As(err, &procErr) {
		exitErr.Code = procErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrConfiguration, stageName, "run downloader",
			fmt.Sprintf("%s not found on PATH", c.command[0]), exitErr)
	}
	return services.Wrap(services.ErrExternalTool, stageName, "run downloader", key, exitErr)
}

// StderrOf extracts captured stderr from a Download error.
func StderrOf(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Stderr
	}
	return ""
}

type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

type commandExecutor struct{}

const maxLineBytes = 1024 * 1024

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, Stdout, onLine)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, Stderr, onLine)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// scanLines reports each non-empty line of r, treating a bare carriage return
// as a line break so progress redraws arrive as separate lines. The pipe is
// always read to EOF; output past a scan error is discarded.
func scanLines(r io.Reader, stream Stream, onLine func(Stream, string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(splitLines)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" && onLine != nil {
			onLine(stream, line)
		}
	}
	if err := scanner.Err(); err != nil {
		if onLine != nil {
			onLine(stream, fmt.Sprintf("output discarded: %v", err))
		}
		_, _ = io.Copy(io.Discard, r)
	}
}

func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
