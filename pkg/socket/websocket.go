// pkg/socket/websocket.go

package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/backoff"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

// WSConfig задаёт параметры websocket-транспорта.
type WSConfig struct {
	ReadTimeout   time.Duration  `mapstructure:"read_timeout"`   // ReadDeadline, например 30s
	WriteTimeout  time.Duration  `mapstructure:"write_timeout"`  // WriteDeadline на исходящие кадры
	ControlBuffer int            `mapstructure:"control_buffer"` // ёмкость очереди control-кадров (ping/pong)
	Backoff       backoff.Config `mapstructure:"backoff"`        // настройки бэкоффа при подключении
}

func (c *WSConfig) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ControlBuffer <= 0 {
		c.ControlBuffer = 16
	}
}

// frameResult — результат одного чтения в reader-горутине.
type frameResult struct {
	fr  Frame
	err error
}

// WebSocket реализует Transport поверх gorilla/websocket.
//
// Чтение вынесено в отдельную горутину, чтобы ReadFrame мог уважать
// контекст; control-кадры (ping/pong) перекладываются в общую очередь
// через хендлеры соединения и видны парсеру как обычные кадры.
type WebSocket struct {
	conn *websocket.Conn
	cfg  WSConfig
	log  *logger.Logger

	frames    chan frameResult
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket подключается к url с экспоненциальным бэкоффом и
// возвращает готовый Transport.
func DialWebSocket(ctx context.Context, url string, cfg WSConfig, log *logger.Logger) (*WebSocket, error) {
	cfg.applyDefaults()
	log = log.Named("ws")

	var conn *websocket.Conn
	err := backoff.Execute(ctx, cfg.Backoff, log, func(ctx context.Context) error {
		var dialErr error
		conn, _, dialErr = websocket.DefaultDialer.DialContext(ctx, url, nil)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("ws: dial %q: %w", url, err)
	}
	log.Info("ws: connected", zap.String("url", url))

	ws := &WebSocket{
		conn:   conn,
		cfg:    cfg,
		log:    log,
		frames: make(chan frameResult, cfg.ControlBuffer),
		done:   make(chan struct{}),
	}
	ws.installControlHandlers()
	go ws.readLoop()
	return ws, nil
}

// installControlHandlers перекладывает ping/pong в очередь кадров.
// Хендлеры вызываются изнутри ReadMessage той же горутиной, поэтому
// запись в канал неблокирующая: при переполнении control-кадр
// отбрасывается (данные при этом не теряются).
func (w *WebSocket) installControlHandlers() {
	w.conn.SetPingHandler(func(appData string) error {
		w.enqueueControl(Frame{Type: FramePing, Payload: []byte(appData)})
		// Протокольный ответ pong, как того требует RFC 6455.
		deadline := time.Now().Add(w.cfg.WriteTimeout)
		err := w.conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
		if err != nil && err != websocket.ErrCloseSent {
			w.log.Warn("ws: pong reply failed", zap.Error(err))
		}
		_ = w.conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		return nil
	})
	w.conn.SetPongHandler(func(appData string) error {
		w.enqueueControl(Frame{Type: FramePong, Payload: []byte(appData)})
		return w.conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
	})
}

func (w *WebSocket) enqueueControl(fr Frame) {
	select {
	case w.frames <- frameResult{fr: fr}:
	default:
		w.log.Debug("ws: control queue full, dropping frame",
			zap.String("type", fr.Type.String()))
	}
}

// readLoop читает кадры до первой ошибки. Close-кадр превращается в
// Frame{FrameClose} и завершает цикл; остальные ошибки отдаются как есть.
func (w *WebSocket) readLoop() {
	defer close(w.frames)

	for {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				w.deliver(frameResult{fr: Frame{
					Type:   FrameClose,
					Code:   closeErr.Code,
					Reason: closeErr.Text,
				}})
				return
			}
			w.deliver(frameResult{err: err})
			return
		}

		var fr Frame
		switch mt {
		case websocket.TextMessage:
			fr = Frame{Type: FrameText, Payload: data}
		case websocket.BinaryMessage:
			fr = Frame{Type: FrameBinary, Payload: data}
		default:
			continue
		}
		if !w.deliver(frameResult{fr: fr}) {
			return
		}
	}
}

// deliver кладёт результат чтения в очередь. Без select на done
// reader-горутина зависла бы навсегда на полной очереди, если
// потребитель закрыл транспорт и больше не читает.
func (w *WebSocket) deliver(res frameResult) bool {
	select {
	case w.frames <- res:
		return true
	case <-w.done:
		return false
	}
}

// ReadFrame реализует Transport. io.EOF после исчерпания reader-горутины.
func (w *WebSocket) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case res, ok := <-w.frames:
		if !ok {
			return Frame{}, io.EOF
		}
		return res.fr, res.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// WriteFrame реализует Transport.
func (w *WebSocket) WriteFrame(ctx context.Context, fr Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(w.cfg.WriteTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = w.conn.SetWriteDeadline(deadline)

	switch fr.Type {
	case FrameText:
		return w.conn.WriteMessage(websocket.TextMessage, fr.Payload)
	case FrameBinary:
		return w.conn.WriteMessage(websocket.BinaryMessage, fr.Payload)
	case FramePing:
		return w.conn.WriteControl(websocket.PingMessage, fr.Payload, deadline)
	case FramePong:
		return w.conn.WriteControl(websocket.PongMessage, fr.Payload, deadline)
	case FrameClose:
		msg := websocket.FormatCloseMessage(fr.Code, fr.Reason)
		return w.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	default:
		return fmt.Errorf("ws: unsupported frame type %d", fr.Type)
	}
}

// Close реализует Transport: шлёт close-кадр (best effort) и закрывает
// соединение. Повторные вызовы безопасны.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		deadline := time.Now().Add(w.cfg.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := w.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil &&
			err != websocket.ErrCloseSent && !isClosedConn(err) {
			w.log.Debug("ws: close frame send failed", zap.Error(err))
		}
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

func isClosedConn(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
