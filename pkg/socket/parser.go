// pkg/socket/parser.go

package socket

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

var skippedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "connector",
	Subsystem: "socket",
	Name:      "skipped_frames_total",
	Help:      "Frames skipped by the parser (ping/pong/unknown)",
}, []string{"type"})

// Parser переводит результат чтения транспорта в биржевое сообщение.
//
// Возвращаемые комбинации:
//   - (msg, nil)  — кадр успешно десериализован;
//   - (nil, nil)  — кадр безопасно пропустить (ping/pong);
//   - (nil, err)  — ошибка, которую нужно отдать потребителю как элемент.
//
// Parser не имеет состояния, не буферизует и не принимает решений о
// повторных попытках.
type Parser[Msg any] interface {
	Parse(fr Frame, rerr error) (*Msg, error)
}

// JSONParser разбирает текстовые и бинарные кадры как JSON-сообщения Msg.
type JSONParser[Msg any] struct {
	log *logger.Logger
}

// NewJSONParser создаёт JSONParser с логгером для диагностики.
func NewJSONParser[Msg any](log *logger.Logger) *JSONParser[Msg] {
	return &JSONParser[Msg]{log: log.Named("parser")}
}

// Parse реализует Parser.
func (p *JSONParser[Msg]) Parse(fr Frame, rerr error) (*Msg, error) {
	// Ошибка транспорта всегда пробрасывается вниз, никогда не глотается.
	if rerr != nil {
		return nil, &TransportError{Err: rerr}
	}

	switch fr.Type {
	case FrameText, FrameBinary:
		var msg Msg
		if err := json.Unmarshal(fr.Payload, &msg); err != nil {
			p.log.Warn("failed to deserialize frame into exchange message",
				zap.ByteString("payload", fr.Payload),
				zap.Error(err),
			)
			return nil, &DeserializeError{Payload: fr.Payload, Err: err}
		}
		return &msg, nil

	case FramePing:
		skippedFrames.WithLabelValues("ping").Inc()
		p.log.Debug("received ping frame", zap.ByteString("payload", fr.Payload))
		return nil, nil

	case FramePong:
		skippedFrames.WithLabelValues("pong").Inc()
		p.log.Debug("received pong frame", zap.ByteString("payload", fr.Payload))
		return nil, nil

	case FrameClose:
		p.log.Debug("received close frame",
			zap.Int("code", fr.Code),
			zap.String("reason", fr.Reason),
		)
		return nil, &TerminatedError{Code: fr.Code, Reason: fr.Reason}

	default:
		skippedFrames.WithLabelValues("unknown").Inc()
		p.log.Warn("received frame of unknown type, skipping",
			zap.Int("type", int(fr.Type)))
		return nil, nil
	}
}
