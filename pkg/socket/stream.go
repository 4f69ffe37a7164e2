// pkg/socket/stream.go

package socket

import (
	"context"
	"errors"
	"io"

	"github.com/eapache/queue"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// item — элемент внутреннего буфера: либо событие, либо ошибка-элемент.
type item struct {
	event model.MarketEvent
	err   error
}

// Stream — композиция Transport + Parser + Transformer для одного
// подключения к бирже.
//
// Состояния: Idle (создан), Draining (буфер непуст), Awaiting-Input
// (буфер пуст, ожидается кадр), Terminated (транспорт исчерпан или
// получена фатальная ошибка). Один вызов Next соответствует одному
// логическому pull-у: внутренний цикл может пропустить ноль и более
// skip-кадров, прежде чем отдать элемент.
//
// Инварианты:
//   - буфер FIFO полностью выгружается до чтения следующего кадра,
//     поэтому все события одного кадра доставляются в порядке
//     производства раньше событий следующего кадра;
//   - все ошибки отдаются как обычные элементы (err != nil), кроме
//     io.EOF, который означает конец потока;
//   - после Transport/Terminated-ошибки каждый следующий Next
//     возвращает io.EOF.
//
// Stream не переподключается сам: политика reconnect — забота
// вызывающей стороны.
type Stream[Msg any] struct {
	transport   Transport
	parser      Parser[Msg]
	transformer Transformer[Msg]

	buffer     *queue.Queue
	terminated bool
}

// NewStream собирает Stream из готовых компонентов. Stream становится
// эксклюзивным владельцем транспорта и трансформера.
func NewStream[Msg any](t Transport, p Parser[Msg], tr Transformer[Msg]) *Stream[Msg] {
	return &Stream[Msg]{
		transport:   t,
		parser:      p,
		transformer: tr,
		buffer:      queue.New(),
	}
}

// Next отдаёт следующий элемент потока: (event, nil) либо (zero, err).
// io.EOF означает, что элементов больше не будет.
func (s *Stream[Msg]) Next(ctx context.Context) (model.MarketEvent, error) {
	for {
		// 1) Сначала полностью выгружаем буфер.
		if s.buffer.Length() > 0 {
			it := s.buffer.Remove().(item)
			if it.err != nil {
				if IsFatal(it.err) {
					s.terminated = true
				}
				return model.MarketEvent{}, it.err
			}
			return it.event, nil
		}

		if s.terminated {
			return model.MarketEvent{}, io.EOF
		}

		// 2) Буфер пуст — опрашиваем транспорт. Это единственная точка,
		// где Next блокируется.
		fr, rerr := s.transport.ReadFrame(ctx)
		if rerr != nil && errors.Is(rerr, io.EOF) {
			s.terminated = true
			return model.MarketEvent{}, io.EOF
		}

		// 3) Кадр (или ошибка чтения) уходит в парсер.
		msg, perr := s.parser.Parse(fr, rerr)
		if perr != nil {
			if IsFatal(perr) {
				s.terminated = true
			}
			return model.MarketEvent{}, perr
		}
		if msg == nil {
			// skip-кадр (ping/pong): не считается доставленным элементом.
			continue
		}

		// 4) Преобразуем сообщение; каждый выход попадает в хвост буфера.
		events, terr := s.transformer.Transform(*msg)
		if terr != nil {
			s.buffer.Add(item{err: terr})
			continue
		}
		for _, ev := range events {
			s.buffer.Add(item{event: ev})
		}
		// Пустой выход (например, подтверждение подписки) — цикл
		// продолжается без видимого элемента.
	}
}

// Send отправляет исходящий кадр (например, запрос подписки) в транспорт.
func (s *Stream[Msg]) Send(ctx context.Context, fr Frame) error {
	return s.transport.WriteFrame(ctx, fr)
}

// Close закрывает нижележащий транспорт.
func (s *Stream[Msg]) Close() error {
	return s.transport.Close()
}
