package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/inference"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// Options configures an Assembler.
type Options struct {
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// Retries is the number of extra attempts after a connection failure.
	// Only 0 and 1 are meaningful; larger values are capped at 1.
	Retries int
}

// DefaultOptions matches a local Ollama setup.
func DefaultOptions() Options {
	return Options{
		Model:       inference.DefaultOllamaModel,
		Timeout:     120 * time.Second,
		Temperature: 0.7,
		MaxTokens:   2048,
		Retries:     1,
	}
}

// Assembler submits chat contexts to a Generator.
type Assembler struct {
	gen  inference.Generator
	opts Options
	log  zerolog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(gen inference.Generator, opts Options, log zerolog.Logger) *Assembler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Retries > 1 {
		opts.Retries = 1
	}
	return &Assembler{gen: gen, opts: opts, log: logger.WithComponent(log, "chat")}
}

// Submit sends the prompt and returns the cleaned answer. Each attempt runs
// under its own timeout. A connection failure is retried at most once when
// configured; a timeout is never retried. Failures are *inference.Error.
func (a *Assembler) Submit(ctx context.Context, cc *ChatContext) (string, error) {
	req := inference.Request{
		Model:       a.opts.Model,
		Prompt:      cc.Prompt,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
	}
	maxAttempts := 1 + a.opts.Retries

	var (
		lastErr  error
		timedOut bool
		attempts int
	)
	for attempts < maxAttempts {
		attempts++

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
		resp, err := a.gen.Generate(attemptCtx, req)
		deadlineHit := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			answer := inference.Clean(resp.Text)
			if answer == "" {
				lastErr = inference.ErrEmptyResponse
				break
			}
			a.log.Debug().
				Int("attempt", attempts).
				Dur("elapsed", time.Since(start)).
				Int("prompt_bytes", len(cc.Prompt)).
				Msg("Answer received")
			return answer, nil
		}

		lastErr = err
		timedOut = deadlineHit || inference.IsTimeout(err)
		if timedOut || !inference.IsConnectionFailure(err) || ctx.Err() != nil {
			break
		}
		if attempts < maxAttempts {
			a.log.Warn().Err(err).Int("attempt", attempts).Msg("Inference backend unreachable, retrying")
		}
	}

	a.log.Error().Err(lastErr).Int("attempts", attempts).Bool("timeout", timedOut).Msg("Inference failed")
	return "", &inference.Error{
		Backend:  a.gen.Name(),
		Model:    a.opts.Model,
		Attempts: attempts,
		Timeout:  timedOut,
		Err:      lastErr,
	}
}
