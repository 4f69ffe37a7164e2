// internal/exchange/bybit/bybit.go

// Package bybit — адаптер Bybit v5: открывает websocket-поток публичных
// сделок и нормализует пакетные события (один кадр → N сделок).
package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// Connector реализует exchange.Connector для Bybit.
type Connector struct {
	cfg exchange.Config
	log *logger.Logger
}

// New создаёт Connector. Логгер именуется "bybit" для фильтра в логах.
func New(cfg exchange.Config, log *logger.Logger) (*Connector, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("bybit: URL is required")
	}
	return &Connector{cfg: cfg, log: log.Named("bybit")}, nil
}

// Name реализует exchange.Connector.
func (c *Connector) Name() model.Exchange { return Name }

// Connect реализует exchange.Connector.
func (c *Connector) Connect(ctx context.Context, subs []model.Subscription) (exchange.Stream, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("bybit: at least one subscription is required")
	}

	transport, err := socket.DialWebSocket(ctx, c.cfg.URL, c.cfg.WS, c.log)
	if err != nil {
		return nil, fmt.Errorf("bybit: connect: %w", err)
	}

	stream := socket.NewStream[message](
		transport,
		socket.NewJSONParser[message](c.log),
		newTransformer(subs),
	)

	topics := make([]string, 0, len(subs))
	for _, sub := range subs {
		topics = append(topics, string(topicID(sub)))
	}
	req, err := json.Marshal(subscribeRequest{Op: "subscribe", Args: topics})
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("bybit: marshal subscribe: %w", err)
	}
	if err := stream.Send(ctx, socket.TextFrame(req)); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("bybit: subscribe: %w", err)
	}

	c.log.Info("bybit: subscribed", zap.Strings("topics", topics))
	return stream, nil
}
