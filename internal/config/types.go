package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了网关运行所需的全部配置项。
type Config struct {
	App       AppConfig         `mapstructure:"app"`
	Server    ServerConfig      `mapstructure:"server"`
	Tradovate TradovateConfig   `mapstructure:"tradovate"`
	Symbols   map[string]string `mapstructure:"symbols"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Logging   LoggingConfig     `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 控制入站 HTTP 服务。
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TradovateConfig 描述 Tradovate 凭据与会话参数。
type TradovateConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	AppID       string `mapstructure:"app_id"`
	AppVersion  string `mapstructure:"app_version"`
	DeviceID    string `mapstructure:"device_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	CID         string `mapstructure:"cid"`
	Secret      string `mapstructure:"sec"`
	AccountID   int    `mapstructure:"account_id"`
	AccountSpec string `mapstructure:"account_spec"`

	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	TokenFallbackTTL time.Duration `mapstructure:"token_fallback_ttl"`
	TokenMargin      time.Duration `mapstructure:"token_safety_margin"`
}

// DatabaseConfig 管理事件日志数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// 令牌安全边际下限，低于该值无法吸收时钟偏差与在途请求延迟。
const minTokenMargin = 20 * time.Second

// Validate 对配置进行基本校验，聚合所有违规项一次性返回。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于[1,65535]"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 必须大于0"))
	}
	if c.Tradovate.BaseURL == "" {
		err = multierr.Append(err, errors.New("tradovate.base_url 不能为空"))
	}
	if c.Tradovate.Username == "" {
		err = multierr.Append(err, errors.New("tradovate.username 不能为空"))
	}
	if c.Tradovate.Password == "" {
		err = multierr.Append(err, errors.New("tradovate.password 不能为空"))
	}
	if c.Tradovate.CID == "" {
		err = multierr.Append(err, errors.New("tradovate.cid 不能为空"))
	}
	if c.Tradovate.Secret == "" {
		err = multierr.Append(err, errors.New("tradovate.sec 不能为空"))
	}
	if c.Tradovate.AccountID <= 0 {
		err = multierr.Append(err, errors.New("tradovate.account_id 必须大于0"))
	}
	if c.Tradovate.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("tradovate.request_timeout 必须大于0"))
	}
	if c.Tradovate.TokenFallbackTTL <= 0 {
		err = multierr.Append(err, errors.New("tradovate.token_fallback_ttl 必须大于0"))
	}
	if c.Tradovate.TokenMargin < minTokenMargin {
		err = multierr.Append(err, fmt.Errorf("tradovate.token_safety_margin 不能小于 %s", minTokenMargin))
	}
	if c.Tradovate.TokenMargin >= c.Tradovate.TokenFallbackTTL {
		err = multierr.Append(err, errors.New("tradovate.token_safety_margin 必须小于 token_fallback_ttl"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
