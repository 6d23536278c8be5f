package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App     `json:"app"     toml:"app"`
		HTTP    `json:"http"    toml:"http"`
		DB      `json:"db"      toml:"db"`
		Redis   `json:"redis"   toml:"redis"`
		Gateway `json:"gateway" toml:"gateway"`
		Workers `json:"workers" toml:"workers"`
		Log     `json:"logger"  toml:"logger"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-required:"true"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
	}

	Redis struct {
		URL string `json:"url" toml:"url" env:"REDIS_URL"`
	}

	Gateway struct {
		APIKey string `json:"api_key" toml:"api_key" env:"MOMO_API_KEY"`
		APIURL string `json:"api_url" toml:"api_url" env:"MOMO_API_URL"`
	}

	Workers struct {
		SweepInterval time.Duration `json:"sweep_interval" toml:"sweep_interval" env:"SWEEP_INTERVAL" env-default:"1m"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
