// internal/stream/unbounded.go
package stream

import (
	"github.com/eapache/queue"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// Unbounded — канал событий без ограничения ёмкости: Send никогда не
// блокирует, медленный потребитель накапливает отставание в памяти.
// Горутина-насос перекладывает события из входа в FIFO-очередь и из
// очереди в выход.
type Unbounded struct {
	in  chan model.MarketEvent
	out chan model.MarketEvent
}

// NewUnbounded создаёт канал и запускает насос.
func NewUnbounded() *Unbounded {
	u := &Unbounded{
		in:  make(chan model.MarketEvent),
		out: make(chan model.MarketEvent),
	}
	go u.pump()
	return u
}

func (u *Unbounded) pump() {
	defer close(u.out)
	buf := queue.New()

	for {
		if buf.Length() == 0 {
			ev, ok := <-u.in
			if !ok {
				return
			}
			buf.Add(ev)
			metrics.QueueDepth.Inc()
		}

		select {
		case ev, ok := <-u.in:
			if !ok {
				// Вход закрыт: досылаем накопленное и выходим.
				for buf.Length() > 0 {
					u.out <- buf.Remove().(model.MarketEvent)
					metrics.QueueDepth.Dec()
				}
				return
			}
			buf.Add(ev)
			metrics.QueueDepth.Inc()
		case u.out <- buf.Peek().(model.MarketEvent):
			buf.Remove()
			metrics.QueueDepth.Dec()
		}
	}
}

// Send кладёт событие в очередь. Паникует после Close, как и обычный канал.
func (u *Unbounded) Send(ev model.MarketEvent) { u.in <- ev }

// Out — выходной канал; закрывается после Close, когда очередь досушена.
func (u *Unbounded) Out() <-chan model.MarketEvent { return u.out }

// Close завершает вход; накопленные события всё ещё будут доставлены.
func (u *Unbounded) Close() { close(u.in) }
