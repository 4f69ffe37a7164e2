// internal/exchange/bybit/message.go
package bybit

import "fmt"

// message — объединение входящих сообщений Bybit v5 WS: ответ на
// subscribe ({"op":"subscribe","success":true,...}) и пакеты сделок
// ({"topic":"publicTrade.BTCUSDT","data":[...]}). Ветви различаются
// по наличию полей "success" и "topic".
type message struct {
	// Ответ на подписку.
	Op      string `json:"op,omitempty"`
	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`

	// Пакет сделок: одна тема, одна и более сделок.
	Topic string      `json:"topic,omitempty"`
	Data  []tradeData `json:"data,omitempty"`
}

type tradeData struct {
	ID     string `json:"i"`
	Symbol string `json:"s"`
	Side   string `json:"S"` // "Buy" | "Sell"
	Price  string `json:"p"`
	Volume string `json:"v"`
	Time   int64  `json:"T"` // unix millis по часам биржи
}

func (m message) isSubResponse() bool { return m.Success != nil }

// Validate: bybit явно сообщает success=false с причиной в ret_msg.
func (m message) Validate() error {
	if m.Success != nil && !*m.Success {
		return fmt.Errorf("subscribe rejected: %s", m.RetMsg)
	}
	return nil
}
