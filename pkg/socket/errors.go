// pkg/socket/errors.go

package socket

import (
	"errors"
	"fmt"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// TransportError — низкоуровневая ошибка соединения. Всегда фатальна
// для данного подключения: поток отдаёт её как элемент и завершается.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DeserializeError — payload не прошёл разбор схемы. Несёт исходные байты
// для диагностики (обычно это признак дрейфа схемы биржи). Соединение
// продолжает работать.
type DeserializeError struct {
	Payload []byte
	Err     error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("deserialize: %v (payload: %s)", e.Err, e.Payload)
}
func (e *DeserializeError) Unwrap() error { return e.Err }

// TerminatedError — получен close-кадр. Отдаётся как элемент, после чего
// поток завершается.
type TerminatedError struct {
	Code   int
	Reason string
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("stream terminated with closing frame: code=%d reason=%q", e.Code, e.Reason)
}

// SubscribeError — биржа отклонила подписку. Решение об аборте — за
// вызывающей стороной.
type SubscribeError struct {
	Reason string
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscribe rejected: %s", e.Reason)
}

// UnidentifiableError — входящее сообщение не сопоставлено ни с одной
// зарегистрированной подпиской. Возможна гонка между подпиской и приёмом
// данных либо устаревший mapping; соединение продолжает работать.
type UnidentifiableError struct {
	ID model.SubscriptionID
}

func (e *UnidentifiableError) Error() string {
	return fmt.Sprintf("consumed unidentifiable message: %s", e.ID)
}

// IsFatal сообщает, завершает ли ошибка поток данного соединения.
// Фатальны только ошибки транспорта и close-кадр.
func IsFatal(err error) bool {
	var (
		transportErr  *TransportError
		terminatedErr *TerminatedError
	)
	return errors.As(err, &transportErr) || errors.As(err, &terminatedErr)
}
