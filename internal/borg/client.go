package borg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// lockedExitCode is borg's modern exit code for "failed to acquire the
// repository lock" (LockTimeout). Requested via BORG_EXIT_CODES=modern.
const lockedExitCode = 73

// stderrTailLimit bounds how much captured stderr an error carries.
const stderrTailLimit = 1024

// ErrRepositoryLocked signals that another process holds the repository
// lock. Recoverable: the caller publishes a blocked state and moves on.
var ErrRepositoryLocked = errors.New("borg: repository is locked by another process")

// InvocationError is any borg failure other than a held lock: an unexpected
// exit code or a process that could not be started at all.
type InvocationError struct {
	Repository string
	ExitCode   int // -1 when the process never ran
	Stderr     string
	Err        error
}

func (e *InvocationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("borg: info %s: exit code %d: %s", e.Repository, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("borg: info %s: %v", e.Repository, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Runner is the invocation boundary the collector depends on.
type Runner interface {
	// Info returns the raw JSON report for the repository.
	Info(ctx context.Context, repository string) ([]byte, error)
}

// Client runs the borg binary. Safe for concurrent use; SetPassphrase may
// be called between cycles (config hot reload).
type Client struct {
	binary  string
	iec     bool
	timeout time.Duration // 0 = no timeout

	mu         sync.RWMutex
	passphrase string

	// newCommand builds the command to run; injectable for tests.
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewClient returns a Client invoking the given binary. timeout of 0 means
// each invocation blocks until borg finishes, matching borg's own behavior
// of waiting on the lock.
func NewClient(binary, passphrase string, iec bool, timeout time.Duration) *Client {
	return &Client{
		binary:     binary,
		passphrase: passphrase,
		iec:        iec,
		timeout:    timeout,
		newCommand: exec.CommandContext,
	}
}

// SetPassphrase swaps the passphrase used for subsequent invocations.
func (c *Client) SetPassphrase(passphrase string) {
	c.mu.Lock()
	c.passphrase = passphrase
	c.mu.Unlock()
}

// Info runs `borg info` against the repository and returns raw stdout.
func (c *Client) Info(ctx context.Context, repository string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := c.newCommand(ctx, c.binary, c.args(repository)...)
	cmd.Env = c.env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classify(repository, err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

func (c *Client) args(repository string) []string {
	args := []string{"info", "-a", "*", "--json"}
	if c.iec {
		args = append(args, "--iec")
	}
	return append(args, repository)
}

func (c *Client) env() []string {
	c.mu.RLock()
	passphrase := c.passphrase
	c.mu.RUnlock()
	return append(os.Environ(),
		"BORG_PASSPHRASE="+passphrase,
		"BORG_EXIT_CODES=modern",
	)
}

// classify maps a command error to the package taxonomy.
func classify(repository string, err error, stderr []byte) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code == lockedExitCode {
			return fmt.Errorf("borg: info %s: %w", repository, ErrRepositoryLocked)
		}
		return &InvocationError{
			Repository: repository,
			ExitCode:   code,
			Stderr:     stderrTail(stderr),
			Err:        err,
		}
	}
	return &InvocationError{Repository: repository, ExitCode: -1, Err: err}
}

// stderrTail returns the trimmed last portion of captured stderr.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
