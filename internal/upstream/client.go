// Package upstream drives one chat request through a backend: payload
// construction, connection lookup, invocation with an anonymous fallback and
// result normalization.
package upstream

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/payload"
	"github.com/n0madic/go-gradiogate/internal/session"
	"github.com/n0madic/go-gradiogate/internal/types"
)

// DefaultMaxConcurrency bounds simultaneous backend calls when Options leaves
// it unset.
const DefaultMaxConcurrency = 16

// Call outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Result is the normalized backend answer. Reasoning is nil when the backend
// returned a single value and any reasoning must be parsed out of Content.
type Result struct {
	Reasoning *string
	Content   string
}

// Observer receives backend call telemetry.
type Observer interface {
	ObserveBackendCall(model, outcome string, elapsed time.Duration)
	ObserveAnonymousRetry(model string)
}

// Options tunes a Coordinator.
type Options struct {
	// MaxConcurrency is the worker pool size.
	MaxConcurrency int
	// Timeout caps a single invocation including the retry. Zero means none.
	Timeout  time.Duration
	Verbose  bool
	Observer Observer
}

// Coordinator executes chat requests against registered backends.
type Coordinator struct {
	registry *models.Registry
	cache    *session.Cache
	connect  session.Factory
	workers  *semaphore.Weighted
	timeout  time.Duration
	verbose  bool
	observer Observer
}

// NewCoordinator wires the registry, connection cache and connection factory.
func NewCoordinator(reg *models.Registry, cache *session.Cache, connect session.Factory, opts Options) *Coordinator {
	n := opts.MaxConcurrency
	if n <= 0 {
		n = DefaultMaxConcurrency
	}
	return &Coordinator{
		registry: reg,
		cache:    cache,
		connect:  connect,
		workers:  semaphore.NewWeighted(int64(n)),
		timeout:  opts.Timeout,
		verbose:  opts.Verbose,
		observer: opts.Observer,
	}
}

// Registry returns the backend registry the coordinator resolves against.
func (c *Coordinator) Registry() *models.Registry {
	return c.registry
}

// Invoke resolves req.Model, calls the backend with credential and, when that
// fails with an authentication or quota error, once more anonymously.
//
// The call is detached from ctx cancellation: a client that goes away does
// not abort a backend call already in progress.
func (c *Coordinator) Invoke(ctx context.Context, req *types.ChatCompletionRequest, credential string) (*Result, error) {
	desc, err := c.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	systemPrompt := payload.SystemPrompt(req.Messages, req.Effort())
	userInput := payload.UserInput(req.Messages)
	args := payload.Build(desc, req, systemPrompt, userInput)

	callCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.timeout)
		defer cancel()
	}

	if err := c.workers.Acquire(callCtx, 1); err != nil {
		return nil, &InvocationError{Model: desc.ID, Anonymous: credential == "", Err: err}
	}
	defer c.workers.Release(1)

	raw, err := c.call(callCtx, desc, args, credential)
	if err != nil && credential != "" && shouldRetryAnonymously(err) {
		slog.Warn("upstream.retry.anonymous", "model", desc.ID, "error", err)
		if c.observer != nil {
			c.observer.ObserveAnonymousRetry(desc.ID)
		}
		credential = ""
		raw, err = c.call(callCtx, desc, args, credential)
	}
	if err != nil {
		return nil, &InvocationError{Model: desc.ID, Anonymous: credential == "", Err: err}
	}
	return normalize(raw), nil
}

func (c *Coordinator) call(ctx context.Context, desc models.Descriptor, args *payload.Payload, credential string) (session.Result, error) {
	anonymous := credential == ""
	start := time.Now()

	handle, err := c.cache.GetOrCreate(ctx, desc, credential, c.connect)
	if err == nil {
		var out session.Result
		out, err = handle.Invoke(ctx, desc.OperationName(), args)
		if err == nil {
			c.record(desc.ID, OutcomeSuccess, start)
			if c.verbose {
				slog.Info("upstream.invoke", "model", desc.ID, "operation", desc.OperationName(),
					"anonymous", anonymous, "outputs", len(out.Values), "elapsed", time.Since(start))
			}
			return out, nil
		}
	}

	c.record(desc.ID, OutcomeError, start)
	slog.Debug("upstream.invoke.failed", "model", desc.ID, "anonymous", anonymous, "error", err)
	return session.Result{}, err
}

func (c *Coordinator) record(model, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(model, outcome, time.Since(start))
	}
}

// normalize maps a raw backend result onto Result. For a sequence the first
// value is the reasoning and the second, if any, the content.
func normalize(raw session.Result) *Result {
	if raw.Sequence && len(raw.Values) > 0 {
		reasoning := raw.Values[0]
		res := &Result{Reasoning: &reasoning}
		if len(raw.Values) > 1 {
			res.Content = raw.Values[1]
		}
		return res
	}
	if len(raw.Values) == 0 {
		return &Result{}
	}
	return &Result{Content: raw.Values[0]}
}
