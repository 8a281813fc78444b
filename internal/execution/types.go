package execution

import (
	"encoding/json"
	"time"
)

// Side 表示下单方向，随请求体显式传给经纪商。
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Ticket 描述一次待提交的市价单。
// Symbol 与 ContractID 二选一：配置映射命中时直接给出合约代码，
// 否则携带解析得到的合约 ID。数量恒为正数。
type Ticket struct {
	Symbol     string
	ContractID int
	Side       Side
	Quantity   int
}

// Outcome 是对经纪商最终应答的传输层分类。
// 2xx 即 Accepted，即便应答体内嵌业务层拒单，也由调用方自行解读。
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Result 为一次提交的最终结果摘要。
type Result struct {
	Outcome     Outcome         `json:"outcome"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	ClOrdID     string          `json:"clOrdId"`
	Retried     bool            `json:"retried"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

func classifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeAccepted
	case status >= 400 && status < 500:
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
