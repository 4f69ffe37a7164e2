// internal/sink/kafka/sink.go
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// Sink сериализует события рынка в JSON и публикует их в один топик.
// Ключ сообщения — MarketID, так события одного рынка попадают в один
// partition и сохраняют порядок.
type Sink struct {
	producer Producer
	topic    string
	log      *logger.Logger
}

// NewSink создаёт Sink поверх готового продьюсера.
func NewSink(producer Producer, topic string, log *logger.Logger) *Sink {
	return &Sink{
		producer: producer,
		topic:    topic,
		log:      log.Named("kafka-sink"),
	}
}

// Run публикует события из канала до его закрытия или отмены контекста.
// Ошибка публикации одного события логируется, поток не останавливается.
func (s *Sink) Run(ctx context.Context, events <-chan model.MarketEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				s.log.Info("kafka-sink: event channel closed")
				return nil
			}
			s.publish(ctx, ev)
		}
	}
}

func (s *Sink) publish(ctx context.Context, ev model.MarketEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		metrics.PublishErrors.Inc()
		s.log.Error("kafka-sink: marshal event failed", zap.Error(err))
		return
	}
	key := []byte(model.NewMarketID(ev.Market.Exchange, ev.Market.Instrument))

	if err := s.producer.Publish(ctx, s.topic, key, value); err != nil {
		metrics.PublishErrors.Inc()
		s.log.Warn("kafka-sink: publish failed, dropping event",
			zap.String("key", string(key)),
			zap.Uint64("sequence", ev.Sequence),
			zap.Error(err),
		)
		return
	}
	metrics.PublishLatency.Observe(time.Since(ev.ReceivedAt).Seconds())
}
