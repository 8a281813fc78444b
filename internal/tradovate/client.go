package tradovate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tv-bridge/internal/config"
	"tv-bridge/internal/metrics"
)

// Client 封装 Tradovate REST 端点调用。
type Client struct {
	cfg        config.TradovateConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 构造 Tradovate REST 客户端。
func NewClient(cfg config.TradovateConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Authenticate 以四项凭据换取会话令牌。
func (c *Client) Authenticate(ctx context.Context) (AccessTokenResponse, error) {
	payload := map[string]interface{}{
		"name":       c.cfg.Username,
		"password":   c.cfg.Password,
		"appId":      c.cfg.AppID,
		"appVersion": c.cfg.AppVersion,
		"deviceId":   c.cfg.DeviceID,
		"cid":        c.cfg.CID,
		"sec":        c.cfg.Secret,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/auth/accesstokenrequest", "", payload)
	if err != nil {
		return AccessTokenResponse{}, fmt.Errorf("tradovate: 登录请求失败: %w", err)
	}
	metrics.Logins.Inc()

	if status < 200 || status >= 300 {
		c.logger.Warn("登录被拒绝",
			zap.Int("status", status),
			zap.String("body", truncate(body, 500)),
		)
		return AccessTokenResponse{}, &AuthError{Status: status, Body: truncate(body, 500)}
	}

	var resp AccessTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return AccessTokenResponse{}, &AuthError{Status: status, Reason: "解析登录应答失败: " + err.Error()}
	}
	if resp.AccessToken == "" {
		return AccessTokenResponse{}, &AuthError{Status: status, Reason: "应答中缺少 accessToken"}
	}

	return resp, nil
}

// SuggestContracts 按根符号检索候选合约。
func (c *Client) SuggestContracts(ctx context.Context, token, root string) ([]Contract, error) {
	endpoint := "/contract/suggest?t=" + url.QueryEscape(root) + "&l=10"

	status, body, err := c.do(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, fmt.Errorf("tradovate: 合约搜索请求失败: %w", err)
	}
	if status != http.StatusOK {
		return nil, &RequestError{Endpoint: "/contract/suggest", Status: status, Body: truncate(body, 500)}
	}

	var contracts []Contract
	if err := json.Unmarshal(body, &contracts); err != nil {
		return nil, fmt.Errorf("tradovate: 合约列表应答不是数组: %w", err)
	}

	return contracts, nil
}

// PlaceOrder 提交委托并原样返回经纪商应答。
// 请求一旦发出便不再随调用方取消，经纪商可能已经受理；
// 超时仍由客户端自身的 Timeout 兜底。
func (c *Client) PlaceOrder(ctx context.Context, token string, ticket OrderTicket) (OrderResponse, error) {
	ctx = context.WithoutCancel(ctx)

	status, body, err := c.do(ctx, http.MethodPost, "/order/placeorder", token, ticket)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("tradovate: 下单请求失败: %w", err)
	}

	c.logger.Info("下单应答",
		zap.Int("status", status),
		zap.String("clOrdId", ticket.ClOrdID),
		zap.String("body", truncate(body, 800)),
	)

	return OrderResponse{Status: status, Body: body}, nil
}

// ListAccounts 透传账户列表端点，仅用于诊断。
func (c *Client) ListAccounts(ctx context.Context, token string) (int, json.RawMessage, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/account/list", token, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("tradovate: 账户列表请求失败: %w", err)
	}
	return status, body, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("构造请求失败: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("读取应答失败: %w", err)
	}

	return resp.StatusCode, body, nil
}
