package monitor

import (
	"time"

	"tv-bridge/internal/execution"
	"tv-bridge/internal/signal"
)

// EventType 表示中继事件类型。
type EventType string

const (
	EventSignal EventType = "signal_received"
	EventOrder  EventType = "order_submitted"
	EventError  EventType = "error"
)

// Event 封装通用中继事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SignalPayload 记录一次收到的信号。
type SignalPayload struct {
	Ticker   string `json:"ticker"`
	Action   string `json:"action"`
	Quantity int    `json:"quantity"`
}

func newSignalPayload(sig signal.Signal) SignalPayload {
	return SignalPayload{
		Ticker:   sig.Ticker,
		Action:   string(sig.Action),
		Quantity: sig.Quantity,
	}
}

// OrderPayload 记录一次订单提交及经纪商应答。
type OrderPayload struct {
	Ticker string           `json:"ticker"`
	Result execution.Result `json:"result"`
}

// ErrorPayload 记录处理失败。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
