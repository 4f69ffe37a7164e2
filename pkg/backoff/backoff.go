// pkg/backoff/backoff.go
package backoff

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var metrics = struct {
	Retries   prometheus.Counter
	Failures  prometheus.Counter
	Successes prometheus.Counter
	Delays    prometheus.Histogram
}{
	Retries: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "retries_total",
		Help: "Number of back-off retry attempts",
	}),
	Failures: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "failures_total",
		Help: "Number of operations that gave up after retries",
	}),
	Successes: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "successes_total",
		Help: "Number of operations that eventually succeeded",
	}),
	Delays: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "retry_delay_seconds",
		Help:    "Histogram of retry delays (seconds)",
		Buckets: prometheus.DefBuckets,
	}),
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config хранит настройки экспоненциального back-off-а.
// Нулевые значения заменяются безопасными дефолтами.
type Config struct {
	// InitialInterval — первая задержка перед повтором.
	InitialInterval time.Duration `mapstructure:"initial_interval"`

	// RandomizationFactor добавляет ±jitter к каждой задержке (0.0..1.0).
	RandomizationFactor float64 `mapstructure:"randomization_factor"`

	// Multiplier умножает предыдущую задержку (2 → удвоение).
	Multiplier float64 `mapstructure:"multiplier"`

	// MaxInterval ограничивает каждую отдельную задержку.
	MaxInterval time.Duration `mapstructure:"max_interval"`

	// MaxElapsedTime — общий лимит на все попытки. Ноль → без лимита.
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time"`

	// PerAttemptTimeout ограничивает время одной попытки. Ноль → без лимита.
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout"`
}

func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.RandomizationFactor <= 0 {
		c.RandomizationFactor = 0.5
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
}

func (c Config) validate() error {
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		return fmt.Errorf("backoff: RandomizationFactor must be in [0,1]")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("backoff: Multiplier must be >= 1")
	}
	return nil
}

// RetryableFunc — единица работы, которая может выполняться повторно,
// пока не завершится успехом или стратегия не сдастся.
type RetryableFunc func(ctx context.Context) error

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrMaxRetries возвращается из Execute, когда попытки исчерпаны.
type ErrMaxRetries struct {
	Err      error // последняя ошибка fn
	Attempts int   // число совершённых попыток
}

func (e *ErrMaxRetries) Error() string {
	return fmt.Sprintf("backoff: %d attempt(s) failed: %v", e.Attempts, e.Err)
}
func (e *ErrMaxRetries) Unwrap() error { return e.Err }

// Permanent помечает ошибку как неповторяемую.
func Permanent(err error) error { return backoff.Permanent(err) }

// -----------------------------------------------------------------------------
// Core
// -----------------------------------------------------------------------------

// Execute выполняет fn с экспоненциальным back-off-ом, метриками и логами.
func Execute(ctx context.Context, cfg Config, log *logger.Logger, fn RetryableFunc) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("backoff: invalid config: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.RandomizationFactor = cfg.RandomizationFactor
	bo.Multiplier = cfg.Multiplier
	bo.MaxInterval = cfg.MaxInterval
	if cfg.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = cfg.MaxElapsedTime
	} else {
		bo.MaxElapsedTime = 0 // без лимита
	}
	boCtx := backoff.WithContext(bo, ctx)

	attempts := 0
	operation := func() error {
		attempts++
		if cfg.PerAttemptTimeout > 0 {
			atCtx, cancel := context.WithTimeout(ctx, cfg.PerAttemptTimeout)
			defer cancel()
			return fn(atCtx)
		}
		return fn(ctx)
	}
	notify := func(err error, delay time.Duration) {
		metrics.Retries.Inc()
		metrics.Delays.Observe(delay.Seconds())
		log.Warn("back-off retry",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, boCtx, notify); err != nil {
		metrics.Failures.Inc()
		log.Error("back-off give-up",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return &ErrMaxRetries{Err: err, Attempts: attempts}
	}

	metrics.Successes.Inc()
	return nil
}
