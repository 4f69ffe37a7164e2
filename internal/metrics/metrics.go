package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// EventsTotal — число нормализованных событий по биржам.
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "stream",
		Name:      "events_total",
		Help:      "Total number of normalized market events per exchange",
	}, []string{"exchange"})

	// StreamErrors — число ошибок-элементов потока по биржам и видам.
	StreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "stream",
		Name:      "errors_total",
		Help:      "Total number of stream error items per exchange and kind",
	}, []string{"exchange", "kind"})

	// StreamsActive — число живых forwarding-горутин.
	StreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connector",
		Subsystem: "stream",
		Name:      "active",
		Help:      "Number of live exchange stream forwarders",
	})

	// QueueDepth — суммарное число событий, ожидающих потребителя в шине.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connector",
		Subsystem: "stream",
		Name:      "queue_depth",
		Help:      "Number of events buffered in the event bus awaiting consumers",
	})

	// PublishErrors — число ошибок публикации событий в Kafka.
	PublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "kafka",
		Name:      "publish_errors_total",
		Help:      "Total number of errors when publishing to Kafka",
	})

	// PublishLatency — задержка от приёма кадра до публикации в Kafka.
	PublishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "connector",
		Subsystem: "pipeline",
		Name:      "publish_latency_seconds",
		Help:      "Latency from frame receipt to Kafka publish (seconds)",
		Buckets:   prometheus.DefBuckets,
	})
)

// Register регистрирует все метрики в заданном реестре.
// Можно вызвать без аргументов, чтобы зарегистрировать в DefaultRegisterer.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			EventsTotal,
			StreamErrors,
			StreamsActive,
			QueueDepth,
			PublishErrors,
			PublishLatency,
		)
	})
}
