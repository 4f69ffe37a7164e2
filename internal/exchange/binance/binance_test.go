// internal/exchange/binance/binance_test.go
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/backoff"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

func TestChannelID(t *testing.T) {
	cases := []struct {
		sub  model.Subscription
		want model.SubscriptionID
	}{
		{model.NewSubscription("btc", "usdt", model.Spot, model.Trades), "btcusdt@trade"},
		{model.NewSubscription("ETH", "USDT", model.Spot, model.Trades), "ethusdt@trade"},
		{model.NewSubscription("btc", "usdt", model.FuturePerpetual, model.Trades), "btcusdt@aggTrade"},
	}
	for _, c := range cases {
		if got := channelID(c.sub); got != c.want {
			t.Errorf("channelID(%v) = %q; want %q", c.sub, got, c.want)
		}
	}
}

func tradeFrame(symbol, price, qty string, id int64, maker bool) message {
	var msg message
	raw := `{"e":"trade","s":"` + symbol + `","t":` + jsonInt(id) +
		`,"p":"` + price + `","q":"` + qty + `","T":1700000000000,"m":` + jsonBool(maker) + `}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		panic(err)
	}
	return msg
}

func jsonInt(v int64) string { b, _ := json.Marshal(v); return string(b) }
func jsonBool(v bool) string { b, _ := json.Marshal(v); return string(b) }

// Три валидных кадра по одной подписке → три события с sequence 0,1,2.
func TestTransformer_SequencesInOrder(t *testing.T) {
	tr := newTransformer([]model.Subscription{
		model.NewSubscription("btc", "usdt", model.Spot, model.Trades),
	})

	for i := int64(0); i < 3; i++ {
		events, err := tr.Transform(tradeFrame("BTCUSDT", "42000.5", "0.1", 100+i, false))
		if err != nil {
			t.Fatalf("transform %d: %v", i, err)
		}
		if len(events) != 1 {
			t.Fatalf("transform %d: %d events", i, len(events))
		}
		ev := events[0]
		if ev.Sequence != uint64(i) {
			t.Errorf("frame %d: sequence = %d; want %d", i, ev.Sequence, i)
		}
		if ev.Market.Exchange != Name {
			t.Errorf("frame %d: exchange = %q", i, ev.Market.Exchange)
		}
		trade := ev.Data.(model.Trade)
		if trade.Price.String() != "42000.5" {
			t.Errorf("frame %d: price = %s", i, trade.Price)
		}
		if trade.Side != model.Buy {
			t.Errorf("frame %d: side = %q; want buy", i, trade.Side)
		}
	}
}

func TestTransformer_SideMapping(t *testing.T) {
	tr := newTransformer([]model.Subscription{
		model.NewSubscription("btc", "usdt", model.Spot, model.Trades),
	})

	events, err := tr.Transform(tradeFrame("BTCUSDT", "1", "1", 1, true))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if got := events[0].Data.(model.Trade).Side; got != model.Sell {
		t.Errorf("buyer-is-maker side = %q; want sell", got)
	}
}

func TestTransformer_AggTrade(t *testing.T) {
	tr := newTransformer([]model.Subscription{
		model.NewSubscription("btc", "usdt", model.FuturePerpetual, model.Trades),
	})

	var msg message
	raw := `{"e":"aggTrade","s":"BTCUSDT","a":777,"p":"42000","q":"2","T":1700000000000,"m":false}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatal(err)
	}

	events, err := tr.Transform(msg)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	trade := events[0].Data.(model.Trade)
	if trade.ID != "777" {
		t.Errorf("trade id = %q; want 777", trade.ID)
	}
	if events[0].Market.Instrument.Kind != model.FuturePerpetual {
		t.Errorf("instrument kind = %q", events[0].Market.Instrument.Kind)
	}
}

func TestTransformer_UnknownChannel(t *testing.T) {
	tr := newTransformer([]model.Subscription{
		model.NewSubscription("btc", "usdt", model.Spot, model.Trades),
	})

	_, err := tr.Transform(tradeFrame("ETHUSDT", "1", "1", 1, false))
	var unident *socket.UnidentifiableError
	if !errors.As(err, &unident) {
		t.Fatalf("expected UnidentifiableError, got %v", err)
	}
	if unident.ID != "ethusdt@trade" {
		t.Errorf("ID = %q", unident.ID)
	}
}

func TestTransformer_SubscribeResponses(t *testing.T) {
	tr := newTransformer([]model.Subscription{
		model.NewSubscription("btc", "usdt", model.Spot, model.Trades),
	})

	var ok message
	if err := json.Unmarshal([]byte(`{"result":null,"id":1}`), &ok); err != nil {
		t.Fatal(err)
	}
	events, err := tr.Transform(ok)
	if err != nil || len(events) != 0 {
		t.Errorf("successful confirmation: events=%d err=%v", len(events), err)
	}

	var rejected message
	if err := json.Unmarshal([]byte(`{"error":{"code":2,"msg":"Invalid request"},"id":2}`), &rejected); err != nil {
		t.Fatal(err)
	}
	_, err = tr.Transform(rejected)
	var subErr *socket.SubscribeError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubscribeError, got %v", err)
	}
	if !strings.Contains(subErr.Reason, "Invalid request") {
		t.Errorf("reason = %q", subErr.Reason)
	}
}

// Интеграция: websocket-сервер играет роль Binance, Connect подписывается,
// поток отдаёт нормализованные события и завершается io.EOF.
func TestConnector_Connect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Ожидаем SUBSCRIBE.
		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "SUBSCRIBE" || len(req.Params) != 1 || req.Params[0] != "btcusdt@trade" {
			t.Errorf("subscribe request = %+v", req)
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"trade","s":"BTCUSDT","t":1,"p":"42000","q":"0.5","T":1700000000000,"m":false}`))
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}))
	defer srv.Close()

	cfg := exchange.Config{
		URL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		WS: socket.WSConfig{
			ReadTimeout: 2 * time.Second,
			Backoff:     backoff.Config{MaxElapsedTime: time.Second},
		},
	}
	connector, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := context.Background()
	stream, err := connector.Connect(ctx, []model.Subscription{
		model.NewSubscription("btc", "usdt", model.Spot, model.Trades),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer stream.Close()

	ev, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.Sequence != 0 {
		t.Errorf("sequence = %d; want 0", ev.Sequence)
	}
	if got := ev.Data.(model.Trade).Price.String(); got != "42000" {
		t.Errorf("price = %s", got)
	}

	// Close-кадр сервера → Terminated-элемент, затем io.EOF.
	_, err = stream.Next(ctx)
	var term *socket.TerminatedError
	if !errors.As(err, &term) {
		t.Fatalf("expected TerminatedError, got %v", err)
	}
	if _, err := stream.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
