// internal/exchange/binance/message.go
package binance

import "fmt"

// message — объединение всех входящих сообщений Binance WS: ответ на
// SUBSCRIBE ({"result":null,"id":1} либо {"error":{...},"id":1}) и
// события сделок (spot "trade", фьючерсы "aggTrade"). Ветви различаются
// по наличию поля "id" и по полю "e".
type message struct {
	// Ответ на подписку.
	ID    *uint64        `json:"id,omitempty"`
	Error *responseError `json:"error,omitempty"`

	// Событие сделки.
	Event        string `json:"e"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"` // unix millis по часам биржи
	BuyerIsMaker bool   `json:"m"`
}

type responseError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (m message) isSubResponse() bool { return m.ID != nil }

// Validate: успешный ответ несёт result == null и не несёт error.
func (m message) Validate() error {
	if m.Error != nil {
		return fmt.Errorf("subscribe rejected: code %d: %s", m.Error.Code, m.Error.Msg)
	}
	return nil
}
