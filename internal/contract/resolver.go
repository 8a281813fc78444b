// Package contract 把根符号解析为当前可交易的合约。
package contract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tv-bridge/internal/tradovate"
)

type searchClient interface {
	SuggestContracts(ctx context.Context, token, root string) ([]tradovate.Contract, error)
}

type tokenSource interface {
	Token(ctx context.Context, force bool) (string, error)
}

// ErrNoContracts 表示根符号没有任何候选合约。
// 重试空搜索不会改变结果，调用方不应自动重试。
var ErrNoContracts = fmt.Errorf("contract: 未找到可交易合约")

// Ref 为一次解析的结果，随请求产生与丢弃，不做缓存：
// 主力合约换月会让长期缓存在缺少失效策略时变得不安全。
type Ref struct {
	RootSymbol   string
	ContractID   int
	Name         string
	IsFrontMonth bool
	IsActive     bool
}

// Resolver 查询合约搜索端点并套用主力合约选择策略。
type Resolver struct {
	client searchClient
	tokens tokenSource
	logger *zap.Logger
}

// NewResolver 创建解析器。
func NewResolver(client searchClient, tokens tokenSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client: client,
		tokens: tokens,
		logger: logger,
	}
}

// Resolve 把根符号映射为合约引用。
func (r *Resolver) Resolve(ctx context.Context, root string) (Ref, error) {
	token, err := r.tokens.Token(ctx, false)
	if err != nil {
		return Ref{}, err
	}

	contracts, err := r.client.SuggestContracts(ctx, token, root)
	if err != nil {
		return Ref{}, err
	}
	if len(contracts) == 0 {
		return Ref{}, fmt.Errorf("%w: %s", ErrNoContracts, root)
	}

	best := pickContract(contracts)

	r.logger.Debug("合约解析完成",
		zap.String("root", root),
		zap.String("contract", best.Name),
		zap.Int("contractId", best.ID),
		zap.Bool("frontMonth", best.IsFrontMonth),
	)

	return Ref{
		RootSymbol:   root,
		ContractID:   best.ID,
		Name:         best.Name,
		IsFrontMonth: best.IsFrontMonth,
		IsActive:     best.Active,
	}, nil
}

// pickContract 实现主力合约的近似选择，按顺序取首个命中：
// 标记为主力的合约、标记为活跃的合约、列表首个元素。
// 经纪商没有跨品种统一的"当前合约"字段，这里只是尽力而为，
// 后续可替换为基于交易所日历的解析。
func pickContract(contracts []tradovate.Contract) tradovate.Contract {
	for _, c := range contracts {
		if c.IsFrontMonth {
			return c
		}
	}
	for _, c := range contracts {
		if c.Active {
			return c
		}
	}
	return contracts[0]
}
