package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/hjonck/leadscout/internal/domain"
)

var errRateLimited = errors.New("llmclient: rate limited")

// Config bounds the Adapter's retry and rate-limiting behaviour.
type Config struct {
	MaxRetries      int
	PerAttemptTimeout time.Duration
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		PerAttemptTimeout: 20 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Adapter is the cascade's single entry point into the LLM layer: a primary
// provider tried first, a secondary used only after the primary exhausts
// its retries on a retryable error, each independently rate-limited.
type Adapter struct {
	primary   providerSlot
	secondary providerSlot
	cfg       Config
}

type providerSlot struct {
	provider Provider
	limiter  *rate.Limiter
}

func newProviderSlot(p Provider, cfg Config) providerSlot {
	return providerSlot{provider: p, limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
}

// New builds an Adapter. secondary may be nil if no failover provider is
// configured, in which case persistent primary failures are returned as-is.
func New(primary, secondary Provider, cfg Config) *Adapter {
	a := &Adapter{cfg: cfg, primary: newProviderSlot(primary, cfg)}
	if secondary != nil {
		a.secondary = newProviderSlot(secondary, cfg)
	}
	return a
}

// Classify tries the primary provider with retries, then falls back to the
// secondary provider (if configured) on a persistent retryable failure.
func (a *Adapter) Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, domain.ErrorKind, error) {
	answer, kind, err := a.classifyWithSlot(ctx, a.primary, n)
	if err == nil {
		return answer, domain.ErrorKindNone, nil
	}
	if a.secondary.provider == nil || !kind.Retryable() {
		return domain.LLMAnswer{}, kind, err
	}
	return a.classifyWithSlot(ctx, a.secondary, n)
}

func (a *Adapter) classifyWithSlot(ctx context.Context, slot providerSlot, n domain.NormalisedName) (domain.LLMAnswer, domain.ErrorKind, error) {
	var answer domain.LLMAnswer
	var lastKind domain.ErrorKind

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(a.cfg.MaxRetries))
	operation := func() error {
		if err := slot.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.PerAttemptTimeout)
		defer cancel()

		got, err := slot.provider.Classify(attemptCtx, n)
		if err == nil {
			answer = got
			lastKind = domain.ErrorKindNone
			return nil
		}

		lastKind = classifyError(err)
		if !lastKind.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		if lastKind == domain.ErrorKindNone {
			lastKind = domain.ErrorKindLLMTransport
		}
		return domain.LLMAnswer{}, lastKind, fmt.Errorf("llmclient[%s]: %w", slot.provider.ProviderTag(), err)
	}
	return answer, domain.ErrorKindNone, nil
}

// classifyError maps a provider error to the cascade's closed ErrorKind
// taxonomy so the Runner can decide whether a micro-batch retry applies
// without string-matching provider-specific error text.
func classifyError(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorKindLLMTimeout
	case errors.Is(err, errRateLimited):
		return domain.ErrorKindLLMRateLimited
	case errors.Is(err, errRefused):
		return domain.ErrorKindLLMRefused
	case errors.Is(err, domain.ErrValidation):
		return domain.ErrorKindLLMMalformed
	default:
		return domain.ErrorKindLLMTransport
	}
}
