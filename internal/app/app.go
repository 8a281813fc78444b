package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tv-bridge/internal/config"
	"tv-bridge/internal/contract"
	"tv-bridge/internal/execution"
	"tv-bridge/internal/monitor"
	"tv-bridge/internal/session"
	"tv-bridge/internal/store"
	"tv-bridge/internal/tradovate"
)

// App 聚合核心依赖并驱动服务生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 装配组件并阻塞运行 HTTP 服务，直到上下文取消。
func (a *App) Run(ctx context.Context) error {
	journal, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return err
	}

	client := tradovate.NewClient(a.cfg.Tradovate, a.logger)
	sessions := session.NewManager(client, session.Options{
		FallbackTTL:  a.cfg.Tradovate.TokenFallbackTTL,
		SafetyMargin: a.cfg.Tradovate.TokenMargin,
	}, a.logger)
	resolver := contract.NewResolver(client, sessions, a.logger)
	submitter := execution.NewSubmitter(client, sessions,
		a.cfg.Tradovate.AccountID, a.cfg.Tradovate.AccountSpec, a.logger)

	srv := &server{
		resolver:  resolver,
		submitter: submitter,
		tokens:    sessions,
		accounts:  client,
		journal:   journal,
		symbols:   a.cfg.Symbols,
		logger:    a.logger,
	}

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 25 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a.logger.Info("收到退出信号，等待在途请求完成")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
		}
		return nil
	})

	a.logger.Info("中继服务已启动",
		zap.String("addr", addr),
		zap.String("environment", a.cfg.App.Environment),
		zap.String("broker", a.cfg.Tradovate.BaseURL),
		zap.Int("symbolMappings", len(a.cfg.Symbols)),
	)

	return group.Wait()
}
