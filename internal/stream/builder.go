// internal/stream/builder.go

// Package stream собирает потоки нескольких бирж в единую шину событий:
// по одной forwarding-горутине на подключение. Поток обрывают только
// фатальные ошибки, остальные логируются, и чтение продолжается.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

// spec — одна заявка: биржа и её подписки.
type spec struct {
	connector exchange.Connector
	subs      []model.Subscription
}

// Builder копит заявки Subscribe и по Init открывает все потоки разом.
type Builder struct {
	log   *logger.Logger
	specs []spec
}

// NewBuilder создаёт Builder.
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{log: log.Named("stream")}
}

// Subscribe добавляет подписки для биржи. Повторные вызовы для одного
// коннектора открывают отдельные подключения.
func (b *Builder) Subscribe(c exchange.Connector, subs ...model.Subscription) *Builder {
	b.specs = append(b.specs, spec{connector: c, subs: subs})
	return b
}

// Init подключает все заявленные биржи и запускает forwarding-горутины.
// Ошибка любого подключения закрывает уже открытые потоки.
func (b *Builder) Init(ctx context.Context) (*Streams, error) {
	if len(b.specs) == 0 {
		return nil, fmt.Errorf("stream: nothing to subscribe")
	}

	runCtx, cancel := context.WithCancel(ctx)
	streams := &Streams{
		channels: make(map[model.Exchange]*Unbounded, len(b.specs)),
		done:     make(chan struct{}),
	}
	active := 0

	for _, sp := range b.specs {
		name := sp.connector.Name()
		st, err := sp.connector.Connect(runCtx, sp.subs)
		if err != nil {
			// Останавливаем уже запущенные форвардеры и только потом
			// закрываем их входы.
			cancel()
			streams.wg.Wait()
			streams.closeInputs()
			return nil, fmt.Errorf("stream: connect %s: %w", name, err)
		}

		out, ok := streams.channels[name]
		if !ok {
			out = NewUnbounded()
			streams.channels[name] = out
		}

		connID := uuid.NewString()
		log := b.log.With(
			zap.String("exchange", name.String()),
			zap.String("conn_id", connID),
		)
		active++
		streams.wg.Add(1)
		metrics.StreamsActive.Inc()
		go func(st exchange.Stream, out *Unbounded, name model.Exchange, log *logger.Logger) {
			defer streams.wg.Done()
			defer metrics.StreamsActive.Dec()
			forward(runCtx, st, out, name, log)
		}(st, out, name, log)
	}

	// Входы закрываются, когда завершатся все форвардеры.
	go func() {
		streams.wg.Wait()
		streams.closeInputs()
		cancel()
		close(streams.done)
	}()

	b.log.Info("stream: initialized",
		zap.Int("connections", active),
		zap.Int("exchanges", len(streams.channels)),
	)
	return streams, nil
}

// forward тянет поток до конца: события уходят в шину, нефатальные
// ошибки логируются, фатальные завершают горутину и транспорт.
func forward(ctx context.Context, st exchange.Stream, out *Unbounded, name model.Exchange, log *logger.Logger) {
	defer st.Close()

	for {
		ev, err := st.Next(ctx)
		switch {
		case err == nil:
			metrics.EventsTotal.WithLabelValues(name.String()).Inc()
			out.Send(ev)

		case errors.Is(err, io.EOF):
			log.Info("stream: exhausted")
			return

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			log.Info("stream: context done", zap.Error(err))
			return

		case socket.IsFatal(err):
			metrics.StreamErrors.WithLabelValues(name.String(), errorKind(err)).Inc()
			log.Error("stream: fatal error, closing connection", zap.Error(err))
			return

		default:
			metrics.StreamErrors.WithLabelValues(name.String(), errorKind(err)).Inc()
			log.Warn("stream: non-fatal error, continuing", zap.Error(err))
		}
	}
}

func errorKind(err error) string {
	var (
		transport *socket.TransportError
		deser     *socket.DeserializeError
		term      *socket.TerminatedError
		sub       *socket.SubscribeError
		unident   *socket.UnidentifiableError
	)
	switch {
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &deser):
		return "deserialize"
	case errors.As(err, &term):
		return "terminated"
	case errors.As(err, &sub):
		return "subscribe"
	case errors.As(err, &unident):
		return "unidentifiable"
	default:
		return "other"
	}
}
