package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver string
	} `mapstructure:"storage"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Production struct {
		LowStockThreshold string        `mapstructure:"low_stock_threshold"`
		CommitTimeout     time.Duration `mapstructure:"commit_timeout"`
	} `mapstructure:"production"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load читает YAML, затем переопределения из окружения (APP_HTTP_ADDR и т.п.).
// Необязательный .env подхватывается до чтения окружения.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("production.low_stock_threshold", "0")
	v.SetDefault("production.commit_timeout", 10*time.Second)
	// AutomaticEnv видит только известные ключи
	for _, k := range []string{"postgres.dsn", "telegram.token", "telegram.admin_chat_id"} {
		_ = v.BindEnv(k)
	}

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if _, err := c.LowStockThreshold(); err != nil {
		return err
	}
	if c.Production.CommitTimeout < 0 {
		return errors.New("production.commit_timeout cannot be negative")
	}
	return nil
}

func (c Config) LowStockThreshold() (decimal.Decimal, error) {
	s := strings.TrimSpace(c.Production.LowStockThreshold)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("production.low_stock_threshold: %w", err)
	}
	return d, nil
}
