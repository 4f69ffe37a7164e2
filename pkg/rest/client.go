// pkg/rest/client.go

// Package rest — минимальный HTTP-клиент бирж: подпись запросов,
// персональные таймауты и гистограмма длительности по метке запроса.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "connector", Subsystem: "rest", Name: "request_duration_seconds",
	Help:    "Duration of exchange REST requests",
	Buckets: prometheus.DefBuckets,
}, []string{"metric", "method", "status"})

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config задаёт параметры клиента.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("rest: base_url is required")
	}
	return nil
}

// APIError — ответ биржи со статусом >= 400. Тело сохраняется как есть:
// формат ошибок у каждой биржи свой.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: api error: status %d: %s", e.Status, e.Body)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client выполняет REST-запросы к одной бирже.
type Client struct {
	cfg    Config
	http   *http.Client
	signer Signer
	log    *logger.Logger
}

// New создаёт Client. signer == nil означает публичный доступ (NoAuth).
func New(cfg Config, signer Signer, log *logger.Logger) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if signer == nil {
		signer = NoAuth{}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		signer: signer,
		log:    log.Named("rest"),
	}, nil
}

// Execute выполняет запрос и, если out != nil, декодирует JSON-ответ в out.
func (c *Client) Execute(ctx context.Context, r Request, out any) error {
	if r.Metric == "" {
		return fmt.Errorf("rest: request metric tag is required")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, c.cfg.BaseURL+r.Path, body)
	if err != nil {
		return fmt.Errorf("rest: build request %q: %w", r.Metric, err)
	}

	query := r.Query
	if query == nil {
		query = url.Values{}
	}
	if r.Sign {
		if err := c.signer.Sign(req, query); err != nil {
			return fmt.Errorf("rest: sign request %q: %w", r.Metric, err)
		}
	}
	req.URL.RawQuery = query.Encode()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		requestDuration.WithLabelValues(r.Metric, r.Method, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("rest: execute %q: %w", r.Metric, err)
	}
	defer resp.Body.Close()

	requestDuration.
		WithLabelValues(r.Metric, r.Method, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rest: read response %q: %w", r.Metric, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("rest: api error",
			zap.String("metric", r.Metric),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return &APIError{Status: resp.StatusCode, Body: payload}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("rest: decode response %q: %w", r.Metric, err)
	}
	return nil
}
