// pkg/socket/frame.go

// Package socket содержит протоколо-независимый конвейер потока биржи:
// Transport (уже установленное двунаправленное соединение), Parser
// (разбор кадров протокола), Transformer (биржевое сообщение → события)
// и Stream — композицию всех трёх с единым pull-интерфейсом.
package socket

import "context"

// FrameType — тип кадра транспорта.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// Frame — один дискретный кадр, принятый или отправляемый через Transport.
// Для FrameClose заполняются Code и Reason.
type Frame struct {
	Type    FrameType
	Payload []byte
	Code    int
	Reason  string
}

// TextFrame — удобный конструктор текстового кадра.
func TextFrame(payload []byte) Frame {
	return Frame{Type: FrameText, Payload: payload}
}

// Transport — уже установленный двунаправленный канал кадров.
//
// ReadFrame блокируется до следующего кадра; io.EOF означает штатное
// исчерпание потока. Любая другая ошибка — ошибка транспорта.
// Реализация не обязана быть потокобезопасной: каждый Transport
// принадлежит ровно одному Stream и опрашивается одной горутиной.
type Transport interface {
	ReadFrame(ctx context.Context) (Frame, error)
	WriteFrame(ctx context.Context, fr Frame) error
	Close() error
}
