package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tv-bridge/internal/contract"
	"tv-bridge/internal/execution"
	"tv-bridge/internal/metrics"
	"tv-bridge/internal/monitor"
	"tv-bridge/internal/signal"
)

type contractResolver interface {
	Resolve(ctx context.Context, root string) (contract.Ref, error)
}

type orderSubmitter interface {
	Submit(ctx context.Context, t execution.Ticket) (execution.Result, error)
}

type tokenSource interface {
	Token(ctx context.Context, force bool) (string, error)
}

type accountLister interface {
	ListAccounts(ctx context.Context, token string) (int, json.RawMessage, error)
}

type eventJournal interface {
	RecordSignal(ctx context.Context, sig signal.Signal)
	RecordOrder(ctx context.Context, ticker string, result execution.Result)
	RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{})
	ListEvents(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error)
}

// server 承载入站 HTTP 路由。信号处理链路为
// 解析校验 → 合约解析（配置映射命中时跳过）→ 下单。
type server struct {
	resolver  contractResolver
	submitter orderSubmitter
	tokens    tokenSource
	accounts  accountLister
	journal   eventJournal
	symbols   map[string]string
	logger    *zap.Logger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/accounts", s.handleAccounts)
	mux.HandleFunc("/events", s.handleEvents)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "tv-bridge running")
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		metrics.Signals.WithLabelValues("invalid").Inc()
		return
	}

	sig, err := signal.Parse(body)
	if err != nil {
		s.logger.Warn("信号校验失败", zap.Error(err), zap.ByteString("body", body))
		s.writeError(w, http.StatusBadRequest, err)
		metrics.Signals.WithLabelValues("invalid").Inc()
		return
	}

	s.logger.Info("收到交易信号",
		zap.String("ticker", sig.Ticker),
		zap.String("action", string(sig.Action)),
		zap.Int("quantity", sig.Quantity),
	)
	if s.journal != nil {
		s.journal.RecordSignal(ctx, sig)
	}

	side := execution.SideBuy
	if sig.Action == signal.ActionSell {
		side = execution.SideSell
	}
	ticket := execution.Ticket{Side: side, Quantity: sig.Quantity}

	if mapped, ok := s.symbols[sig.Ticker]; ok {
		ticket.Symbol = mapped
	} else {
		ref, resolveErr := s.resolver.Resolve(ctx, sig.Ticker)
		if resolveErr != nil {
			s.failSignal(ctx, w, sig, "合约解析失败", resolveErr)
			return
		}
		ticket.ContractID = ref.ContractID
	}

	result, err := s.submitter.Submit(ctx, ticket)
	if err != nil {
		s.failSignal(ctx, w, sig, "订单提交失败", err)
		return
	}

	if s.journal != nil {
		s.journal.RecordOrder(ctx, sig.Ticker, result)
	}

	if result.Outcome != execution.OutcomeAccepted {
		s.logger.Error("经纪商拒绝订单",
			zap.String("ticker", sig.Ticker),
			zap.Int("status", result.Status),
			zap.ByteString("body", result.Body),
		)
		metrics.Signals.WithLabelValues("failed").Inc()
		s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"status":           "error",
			"tradovate_status": result.Status,
			"tradovate":        rawOrString(result.Body),
		})
		return
	}

	metrics.Signals.WithLabelValues("accepted").Inc()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"tradovate": rawOrString(result.Body),
	})
}

// failSignal 统一分类失败并落日志与事件。校验类错误归 400，
// 其余（登录失败、经纪商异常、网络超时）归 502，原因原样带回。
func (s *server) failSignal(ctx context.Context, w http.ResponseWriter, sig signal.Signal, msg string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, signal.ErrInvalid) ||
		errors.Is(err, execution.ErrInvalidOrder) ||
		errors.Is(err, contract.ErrNoContracts) {
		status = http.StatusBadRequest
	}

	s.logger.Error(msg,
		zap.String("ticker", sig.Ticker),
		zap.String("action", string(sig.Action)),
		zap.Error(err),
	)
	if s.journal != nil {
		s.journal.RecordError(ctx, msg, err, map[string]interface{}{
			"ticker":   sig.Ticker,
			"action":   string(sig.Action),
			"quantity": sig.Quantity,
		})
	}

	if status == http.StatusBadRequest {
		metrics.Signals.WithLabelValues("invalid").Inc()
	} else {
		metrics.Signals.WithLabelValues("failed").Inc()
	}

	s.writeError(w, status, err)
}

func (s *server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := s.tokens.Token(ctx, false)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	status, body, err := s.accounts.ListAccounts(ctx, token)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("写入账户应答失败", zap.Error(err))
	}
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "event journal disabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	limit := 200
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := s.journal.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]interface{}{
		"status": "error",
		"error":  err.Error(),
	})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("写入应答失败", zap.Error(err))
	}
}

// rawOrString 尽量把经纪商应答体嵌为 JSON，非法 JSON 退化为字符串。
func rawOrString(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
