package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置（环境变量优先，其次 config.yaml，最后默认值）
type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Database struct {
		Driver string // sqlite | postgres
		DSN    string
	}
	Redis struct {
		Addr         string // 为空则禁用缓存
		FeedCacheTTL time.Duration
	}
	Feed struct {
		PageSize int
	}
	Tip struct {
		TokenAddress  string
		TokenDecimals uint8
		DefaultAmount string
		RefreshDelay  time.Duration
	}
	Chain struct {
		RPCURL     string
		PrivateKey string
		ChainID    int64
	}
	Sentry struct {
		DSN string
	}
	RateLimit struct {
		RPS   float64
		Burst int
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("anonboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "anonboard.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.feedcachettl", "5s")
	v.SetDefault("feed.pagesize", 15)
	// Base mainnet USDC
	v.SetDefault("tip.tokenaddress", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	v.SetDefault("tip.tokendecimals", 6)
	v.SetDefault("tip.defaultamount", "0.10")
	v.SetDefault("tip.refreshdelay", "500ms")
	v.SetDefault("chain.rpcurl", "")
	v.SetDefault("chain.privatekey", "")
	v.SetDefault("chain.chainid", 8453)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失不算错误，走默认值 + 环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
