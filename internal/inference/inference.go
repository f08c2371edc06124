// Package inference talks to the language-model backends used by the chat
// assistant. Backends implement Generator; failures surface as *Error.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// Request is one prompt sent to a backend.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response carries the generated text.
type Response struct {
	Model string
	Text  string
}

// Generator is implemented by every backend.
type Generator interface {
	// Name identifies the backend in errors and logs, e.g. "ollama".
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

var (
	// ErrUnavailable marks a failure to reach the backend at all.
	ErrUnavailable = errors.New("inference backend unavailable")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Error describes a failed generation after all attempts.
type Error struct {
	Backend  string
	Model    string
	Attempts int
	// Timeout is set when the last attempt ran out of time.
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	reason := "failed"
	if e.Timeout {
		reason = "timed out"
	}
	return fmt.Sprintf("inference %s/%s %s after %d attempt(s): %v", e.Backend, e.Model, reason, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err comes from a deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsConnectionFailure reports whether err means the backend could not be
// reached or dropped the connection. Timeouts are not connection failures.
func IsConnectionFailure(err error) bool {
	if err == nil || IsTimeout(err) {
		return false
	}
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	openFence  = regexp.MustCompile("^```[a-zA-Z]*\n")
)

// Clean strips reasoning blocks and a wrapping Markdown code fence from a
// model answer.
func Clean(raw string) string {
	s := thinkBlock.ReplaceAllString(raw, "")
	// Unterminated reasoning block: drop everything up to the end of it.
	if idx := strings.Index(s, "<think>"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = openFence.ReplaceAllString(s, "")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	return s
}
