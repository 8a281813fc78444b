// Package session 管理 Tradovate 会话令牌的获取与缓存。
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tv-bridge/internal/tradovate"
)

type loginClient interface {
	Authenticate(ctx context.Context) (tradovate.AccessTokenResponse, error)
}

// Options 控制令牌生命周期参数。
type Options struct {
	// FallbackTTL 在经纪商应答未携带过期信息时生效。
	FallbackTTL time.Duration
	// SafetyMargin 为名义过期时间预留的提前量，
	// 用于吸收时钟偏差与在途请求延迟。
	SafetyMargin time.Duration
}

// Manager 持有全局唯一的令牌缓存。
// 检查过期与刷新必须处于同一临界区内，避免并发请求各自判定
// 过期后重复登录，也避免读到令牌与过期时间的撕裂组合。
type Manager struct {
	client  loginClient
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	token     string
	issuedAt  time.Time
	expiresAt time.Time
}

// NewManager 创建会话管理器。
func NewManager(client loginClient, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FallbackTTL <= 0 {
		opts.FallbackTTL = 10 * time.Minute
	}
	if opts.SafetyMargin < 20*time.Second {
		opts.SafetyMargin = 30 * time.Second
	}

	return &Manager{
		client: client,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Token 返回可用的会话令牌，必要时刷新。
// force 为 true 时无条件重新登录，用于下单层的过期重试路径。
func (m *Manager) Token(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !force && m.usableLocked(now) {
		return m.token, nil
	}

	resp, err := m.client.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	expiresAt := m.resolveExpiry(now, resp)

	m.token = resp.AccessToken
	m.issuedAt = now
	m.expiresAt = expiresAt

	m.logger.Info("会话令牌已刷新",
		zap.Bool("forced", force),
		zap.Time("expiresAt", expiresAt),
	)

	return m.token, nil
}

func (m *Manager) usableLocked(now time.Time) bool {
	return m.token != "" && now.Before(m.expiresAt.Add(-m.opts.SafetyMargin))
}

// resolveExpiry 把经纪商不一致的过期字段统一成单一时间点：
// 优先 expirationTime（RFC3339），其次 expiresIn 秒数，都缺失
// 时套用兜底 TTL。实测 live 环境返回 expirationTime。
func (m *Manager) resolveExpiry(now time.Time, resp tradovate.AccessTokenResponse) time.Time {
	if resp.ExpirationTime != "" {
		if ts, err := time.Parse(time.RFC3339, resp.ExpirationTime); err == nil {
			return ts
		}
		m.logger.Warn("无法解析 expirationTime，改用兜底 TTL",
			zap.String("expirationTime", resp.ExpirationTime),
		)
	}
	if resp.ExpiresIn > 0 {
		return now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return now.Add(m.opts.FallbackTTL)
}
