// Package execution 负责构造并提交市价单，处理会话过期重试。
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tv-bridge/internal/metrics"
	"tv-bridge/internal/tradovate"
)

type orderClient interface {
	PlaceOrder(ctx context.Context, token string, ticket tradovate.OrderTicket) (tradovate.OrderResponse, error)
}

type tokenSource interface {
	Token(ctx context.Context, force bool) (string, error)
}

// ErrInvalidOrder 标记未通过前置校验的委托，不会产生任何网络调用。
var ErrInvalidOrder = errors.New("execution: 无效委托")

// Submitter 把交易信号转化为经纪商委托。
type Submitter struct {
	client      orderClient
	tokens      tokenSource
	accountID   int
	accountSpec string
	logger      *zap.Logger
	newClOrdID  func() string
}

// NewSubmitter 创建下单器。
func NewSubmitter(client orderClient, tokens tokenSource, accountID int, accountSpec string, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		client:      client,
		tokens:      tokens,
		accountID:   accountID,
		accountSpec: accountSpec,
		logger:      logger,
		newClOrdID:  uuid.NewString,
	}
}

// Submit 提交一笔市价单并返回传输层分类后的结果。
//
// 重试策略：仅当应答表明会话过期时，强制重新登录一次并以完全
// 相同的请求体重提一次；第二次的任何失败原样上抛。重试上限为一，
// 避免无界重试带来的重复成交风险。相同信号的重复提交不做去重，
// 每次调用都是一笔独立委托。
func (s *Submitter) Submit(ctx context.Context, t Ticket) (Result, error) {
	if err := t.validate(); err != nil {
		return Result{}, err
	}

	token, err := s.tokens.Token(ctx, false)
	if err != nil {
		return Result{}, err
	}

	ticket := tradovate.OrderTicket{
		AccountSpec: s.accountSpec,
		AccountID:   s.accountID,
		Action:      string(t.Side),
		Symbol:      t.Symbol,
		ContractID:  t.ContractID,
		OrderType:   "Market",
		TimeInForce: "Day",
		OrderQty:    t.Quantity,
		IsAutomated: true,
		ClOrdID:     s.newClOrdID(),
	}

	resp, err := s.client.PlaceOrder(ctx, token, ticket)
	if err != nil {
		return Result{}, err
	}

	retried := false
	if tradovate.IsAuthExpired(resp.Status, resp.Body) {
		s.logger.Warn("会话疑似过期，强制重新登录后重试一次",
			zap.Int("status", resp.Status),
			zap.String("clOrdId", ticket.ClOrdID),
		)

		token, err = s.tokens.Token(ctx, true)
		if err != nil {
			return Result{}, err
		}

		resp, err = s.client.PlaceOrder(ctx, token, ticket)
		if err != nil {
			return Result{}, err
		}
		retried = true
	}

	result := Result{
		Outcome:     classifyStatus(resp.Status),
		Status:      resp.Status,
		Body:        resp.Body,
		ClOrdID:     ticket.ClOrdID,
		Retried:     retried,
		SubmittedAt: time.Now().UTC(),
	}
	metrics.Orders.WithLabelValues(string(result.Outcome), string(t.Side)).Inc()

	return result, nil
}

func (t Ticket) validate() error {
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: 数量必须大于0", ErrInvalidOrder)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("%w: 方向必须为 Buy 或 Sell", ErrInvalidOrder)
	}
	if t.Symbol == "" && t.ContractID == 0 {
		return fmt.Errorf("%w: 缺少合约代码或合约ID", ErrInvalidOrder)
	}
	return nil
}
