// internal/app/connector.go

// Package app связывает компоненты сервиса: адаптеры бирж, шину потоков,
// Kafka-sink и служебный HTTP-сервер.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/config"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange/binance"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange/bybit"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/httpserver"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/metrics"
	kafkasink "github.com/YaganovValera/analytics-system/services/exchange-connector/internal/sink/kafka"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/stream"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/telemetry"
)

// Run запускает сервис и блокируется до отмены контекста или фатальной
// ошибки.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	metrics.Register(nil)

	// Трассировка
	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Insecure:       cfg.Telemetry.Insecure,
		SamplerRatio:   cfg.Telemetry.SamplerRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownSafe(ctx, "telemetry", func() error { return shutdownTracer(ctx) }, log)

	// 1) Группируем подписки по биржам и строим коннекторы.
	subsByExchange, err := groupSubscriptions(cfg.Subscriptions)
	if err != nil {
		return err
	}
	builder := stream.NewBuilder(log)
	for name, subs := range subsByExchange {
		connector, err := newConnector(name, cfg, log)
		if err != nil {
			return fmt.Errorf("connector %s init: %w", name, err)
		}
		builder.Subscribe(connector, subs...)
	}

	// 2) Kafka-sink (опционально).
	var sink *kafkasink.Sink
	readiness := func() error { return nil }
	if cfg.Kafka.Enabled() {
		producer, err := kafkasink.NewProducer(ctx, kafkasink.Config{
			Brokers:        cfg.Kafka.Brokers,
			RequiredAcks:   cfg.Kafka.Acks,
			Timeout:        cfg.Kafka.Timeout,
			Compression:    cfg.Kafka.Compression,
			FlushFrequency: cfg.Kafka.FlushFrequency,
			FlushMessages:  cfg.Kafka.FlushMessages,
			Backoff:        cfg.Kafka.Backoff,
		}, log)
		if err != nil {
			return fmt.Errorf("kafka producer init: %w", err)
		}
		defer shutdownSafe(ctx, "kafka-producer", producer.Close, log)
		sink = kafkasink.NewSink(producer, cfg.Kafka.Topic, log)
		readiness = func() error { return producer.Ping(ctx) }
	}

	// 3) HTTP-сервер.
	httpSrv, err := httpserver.New(httpserver.Config{
		Addr:            fmt.Sprintf(":%d", cfg.HTTP.Port),
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		MetricsPath:     cfg.HTTP.MetricsPath,
		HealthzPath:     cfg.HTTP.HealthzPath,
		ReadyzPath:      cfg.HTTP.ReadyzPath,
	}, readiness, log)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Start(ctx) })

	// Основной цикл: подключиться, выкачать потоки до конца, переподключиться.
	// Бэкофф переподключения живёт внутри DialWebSocket каждого адаптера.
	g.Go(func() error {
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			streams, err := builder.Init(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("app: stream init failed, retrying", zap.Error(err))
				// Бэкофф набора попыток живёт в DialWebSocket; эта пауза
				// гасит горячий цикл, когда Init падает не на подключении.
				if err := sleepCtx(ctx, initRetryDelay); err != nil {
					return err
				}
				continue
			}

			if err := consume(ctx, sink, streams, log); err != nil {
				return err
			}
			log.Info("app: all streams exhausted, reconnecting")
		}
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("app: stopped by context")
			return nil
		}
		return err
	}
	return nil
}

// initRetryDelay — пауза между неудачными попытками открыть потоки.
const initRetryDelay = time.Second

// sleepCtx ждёт d или отмену контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// consume выкачивает объединённую шину до исчерпания всех потоков.
func consume(ctx context.Context, sink *kafkasink.Sink, streams *stream.Streams, log *logger.Logger) error {
	events := streams.Join()
	if sink != nil {
		if err := sink.Run(ctx, events); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("kafka sink: %w", err)
		}
		return nil
	}

	// Без Kafka события только считаются метриками и логируются.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			log.Debug("app: event",
				zap.String("exchange", ev.Market.Exchange.String()),
				zap.Uint64("sequence", ev.Sequence),
			)
		}
	}
}

func groupSubscriptions(list []config.SubscriptionConfig) (map[string][]model.Subscription, error) {
	out := make(map[string][]model.Subscription, 2)
	for i, sc := range list {
		sub, err := sc.ToModel()
		if err != nil {
			return nil, fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
		name := strings.ToLower(sc.Exchange)
		out[name] = append(out[name], sub)
	}
	return out, nil
}

func newConnector(name string, cfg *config.Config, log *logger.Logger) (exchange.Connector, error) {
	switch name {
	case "binance":
		return binance.New(cfg.Exchanges.Binance, log)
	case "bybit":
		return bybit.New(cfg.Exchanges.Bybit, log)
	default:
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
}

// shutdownSafe оборачивает вызов Close()/Shutdown() с логированием.
func shutdownSafe(ctx context.Context, name string, fn func() error, log *logger.Logger) {
	log.WithContext(ctx).Info(fmt.Sprintf("%s: shutting down", name))
	if err := fn(); err != nil {
		log.WithContext(ctx).Error(fmt.Sprintf("%s shutdown error", name), zap.Error(err))
	} else {
		log.WithContext(ctx).Info(fmt.Sprintf("%s: shutdown complete", name))
	}
}
