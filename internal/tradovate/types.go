package tradovate

import "encoding/json"

// AccessTokenResponse 为登录端点返回体。
// expirationTime 为 RFC3339 时间戳；部分环境只返回 expiresIn 秒数，
// 两者都缺失时由会话层套用兜底 TTL。
type AccessTokenResponse struct {
	AccessToken    string `json:"accessToken"`
	MdAccessToken  string `json:"mdAccessToken"`
	ExpirationTime string `json:"expirationTime"`
	ExpiresIn      int64  `json:"expiresIn"`
	UserID         int    `json:"userId"`
	Name           string `json:"name"`
}

// Contract 为合约搜索端点返回的候选合约。
type Contract struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	IsFrontMonth bool   `json:"isFrontMonth"`
	Active       bool   `json:"active"`
}

// OrderTicket 为下单端点请求体。方向由 Action 显式携带，
// OrderQty 恒为正数，不使用带符号数量的编码方式。
type OrderTicket struct {
	AccountSpec string `json:"accountSpec,omitempty"`
	AccountID   int    `json:"accountId"`
	Action      string `json:"action"`
	Symbol      string `json:"symbol,omitempty"`
	ContractID  int    `json:"contractId,omitempty"`
	OrderType   string `json:"orderType"`
	TimeInForce string `json:"timeInForce"`
	OrderQty    int    `json:"orderQty"`
	IsAutomated bool   `json:"isAutomated"`
	ClOrdID     string `json:"clOrdId,omitempty"`
}

// OrderResponse 保留下单端点的原始应答，业务层拒单信息
// 可能藏在 200 应答体内，由调用方自行解读。
type OrderResponse struct {
	Status int
	Body   json.RawMessage
}
