// Package signal 解析并校验入站的交易信号。
package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid 标记未通过校验的信号，对应 HTTP 400。
var ErrInvalid = errors.New("signal: 无效信号")

// Action 为信号方向，取值 buy 或 sell。
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal 为归一化后的入站信号。
type Signal struct {
	Ticker   string
	Action   Action
	Quantity int
}

// 告警工具对 quantity 字段的类型并不稳定，数字与数字字符串都会出现。
type rawSignal struct {
	Ticker   string      `json:"ticker"`
	Action   string      `json:"action"`
	Quantity json.Number `json:"quantity"`
}

// Parse 解析 webhook 请求体。quantity 缺省为 1。
func Parse(body []byte) (Signal, error) {
	var raw rawSignal
	if err := json.Unmarshal(body, &raw); err != nil {
		return Signal{}, fmt.Errorf("%w: 请求体不是合法 JSON: %v", ErrInvalid, err)
	}

	ticker := strings.TrimSpace(raw.Ticker)
	if ticker == "" {
		return Signal{}, fmt.Errorf("%w: 缺少 ticker", ErrInvalid)
	}

	action := Action(strings.ToLower(strings.TrimSpace(raw.Action)))
	if action != ActionBuy && action != ActionSell {
		return Signal{}, fmt.Errorf("%w: action 必须为 buy 或 sell", ErrInvalid)
	}

	quantity := 1
	if raw.Quantity != "" {
		v, err := raw.Quantity.Int64()
		if err != nil {
			return Signal{}, fmt.Errorf("%w: quantity 必须为整数", ErrInvalid)
		}
		quantity = int(v)
	}
	if quantity <= 0 {
		return Signal{}, fmt.Errorf("%w: quantity 必须大于0", ErrInvalid)
	}

	return Signal{
		Ticker:   ticker,
		Action:   action,
		Quantity: quantity,
	}, nil
}
