package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "tv"
)

// Load 读取配置文件并结合环境变量返回 Config。
// 凭据类字段通常不写入文件，通过 TV_TRADOVATE_* 环境变量注入。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile 下文件缺失返回 *fs.PathError 而非 ConfigFileNotFoundError。
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "25s")

	v.SetDefault("tradovate.base_url", "https://demo.tradovateapi.com/v1")
	v.SetDefault("tradovate.app_id", "tv-bridge")
	v.SetDefault("tradovate.app_version", "1.0")
	v.SetDefault("tradovate.device_id", "tv-bridge")
	v.SetDefault("tradovate.username", "")
	v.SetDefault("tradovate.password", "")
	v.SetDefault("tradovate.cid", "")
	v.SetDefault("tradovate.sec", "")
	v.SetDefault("tradovate.account_id", 0)
	v.SetDefault("tradovate.account_spec", "")
	v.SetDefault("tradovate.request_timeout", "15s")
	v.SetDefault("tradovate.token_fallback_ttl", "10m")
	v.SetDefault("tradovate.token_safety_margin", "30s")

	v.SetDefault("database.path", "data/tv_bridge.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
