// internal/stream/streams.go
package stream

import (
	"sync"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

// Streams — результат Init: шина событий по биржам. Каналы закрываются,
// когда завершаются все forwarding-горутины соответствующей биржи.
type Streams struct {
	channels map[model.Exchange]*Unbounded
	wg       sync.WaitGroup
	closeIn  sync.Once
	done     chan struct{}
}

func (s *Streams) closeInputs() {
	s.closeIn.Do(func() {
		for _, u := range s.channels {
			u.Close()
		}
	})
}

// Select возвращает канал событий одной биржи.
func (s *Streams) Select(name model.Exchange) (<-chan model.MarketEvent, bool) {
	u, ok := s.channels[name]
	if !ok {
		return nil, false
	}
	return u.Out(), true
}

// Join сливает события всех бирж в один канал. Канал закрывается, когда
// исчерпаны все источники. Вызывать не более одного раза и не сочетать
// с Select: каждый источник читается ровно одним потребителем.
func (s *Streams) Join() <-chan model.MarketEvent {
	out := make(chan model.MarketEvent)
	var wg sync.WaitGroup
	for _, u := range s.channels {
		wg.Add(1)
		go func(u *Unbounded) {
			defer wg.Done()
			for ev := range u.Out() {
				out <- ev
			}
		}(u)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Done закрывается после завершения всех forwarding-горутин.
func (s *Streams) Done() <-chan struct{} { return s.done }
