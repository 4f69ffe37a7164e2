// pkg/socket/transformer.go

package socket

import (
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// Transformer преобразует одно биржевое сообщение в ноль и более
// нормализованных событий.
//
// Контракт:
//   - подтверждение подписки валидируется; при отказе возвращается
//     SubscribeError, при успехе — пустой срез (подтверждения никогда
//     не видны потребителю как данные);
//   - сообщение с данными разрешается в исходную Subscription по его
//     SubscriptionID; отсутствие соответствия — UnidentifiableError
//     (не фатально для конвейера);
//   - каждое выданное событие получает очередное pre-increment значение
//     счётчика Sequence своей подписки; значения строго растут и не
//     переиспользуются, в том числе внутри пакетных сообщений (1→N).
//
// Побочные эффекты ограничены внутренней картой подписок; ввод-вывод
// запрещён. Transformer принадлежит одному Stream и вызывается из одной
// горутины, блокировки не нужны.
type Transformer[Msg any] interface {
	Transform(msg Msg) ([]model.MarketEvent, error)
}

// Validator проверяет, пригодно ли внутреннее состояние значения для
// дальнейшего использования (например, подтверждение подписки).
type Validator interface {
	Validate() error
}
