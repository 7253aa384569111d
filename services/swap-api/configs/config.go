package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port                      string        `mapstructure:"PORT" validate:"required"`
	AggregatorBaseURL         string        `mapstructure:"AGGREGATOR_BASE_URL" validate:"required,url"`
	AggregatorTimeout         time.Duration `mapstructure:"AGGREGATOR_TIMEOUT" validate:"gt=0"`
	AggregatorMaxRetries      int           `mapstructure:"AGGREGATOR_MAX_RETRIES" validate:"min=0,max=10"`
	AggregatorRateLimitPerSec int           `mapstructure:"AGGREGATOR_RATE_LIMIT_PER_SEC" validate:"min=0"`
	AggregatorRateBurst       int           `mapstructure:"AGGREGATOR_RATE_BURST" validate:"min=0"`
	RateTTL                   time.Duration `mapstructure:"RATE_TTL" validate:"gt=0"`
	RateWait                  time.Duration `mapstructure:"RATE_WAIT" validate:"min=0"`
	RedisAddr                 string        `mapstructure:"REDIS_ADDR"`
	FormTTL                   time.Duration `mapstructure:"FORM_TTL" validate:"gt=0"`
	DefaultNetwork            string        `mapstructure:"DEFAULT_NETWORK" validate:"required"`
	RPCEndpoints              string        `mapstructure:"RPC_ENDPOINTS"`
	CatalogPath               string        `mapstructure:"CATALOG_PATH"`
	PrimaryDbAddr             string        `mapstructure:"PRIMARY_DB_ADDR"`
	MaxDbCons                 int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons                 int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("AGGREGATOR_TIMEOUT", "3s")
	viper.SetDefault("AGGREGATOR_MAX_RETRIES", 2)
	viper.SetDefault("AGGREGATOR_RATE_LIMIT_PER_SEC", 20)
	viper.SetDefault("AGGREGATOR_RATE_BURST", 40)
	viper.SetDefault("RATE_TTL", "30s")
	viper.SetDefault("RATE_WAIT", "1500ms")
	viper.SetDefault("FORM_TTL", "30m")
	viper.SetDefault("DEFAULT_NETWORK", "base")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")

	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/swap-api/configs")
	_ = viper.ReadInConfig()

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	if _, err := cfg.RPCEndpointMap(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RPCEndpointMap parses RPC_ENDPOINTS, a comma separated list of network=url pairs.
func (c *Config) RPCEndpointMap() (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(c.RPCEndpoints, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		network, url, ok := strings.Cut(pair, "=")
		network, url = strings.TrimSpace(network), strings.TrimSpace(url)
		if !ok || network == "" || url == "" {
			return nil, fmt.Errorf("invalid RPC_ENDPOINTS entry %q, want network=url", pair)
		}
		out[strings.ToLower(network)] = url
	}
	return out, nil
}
