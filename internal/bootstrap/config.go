package bootstrap

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	GrpcPort       string `mapstructure:"GRPC_PORT"`
	EngineGrpcAddr string `mapstructure:"ENGINE_GRPC_ADDR"`
	RedisUrl       string `mapstructure:"REDIS_URL"`
	MongoUri       string `mapstructure:"MONGO_URI"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`
	IsLocalCors    bool   `mapstructure:"LOCAL_CORS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`

	StockfishPath    string        `mapstructure:"STOCKFISH_PATH"`
	EngineThreads    int           `mapstructure:"ENGINE_THREADS"`
	EngineHashMB     int           `mapstructure:"ENGINE_HASH_MB"`
	HandshakeTimeout time.Duration `mapstructure:"ENGINE_HANDSHAKE_TIMEOUT"`
	PerDepthTimeout  time.Duration `mapstructure:"ENGINE_PER_DEPTH_TIMEOUT"`
	MinJobTimeout    time.Duration `mapstructure:"ENGINE_MIN_JOB_TIMEOUT"`
	MaxJobTimeout    time.Duration `mapstructure:"ENGINE_MAX_JOB_TIMEOUT"`
	StopGrace        time.Duration `mapstructure:"ENGINE_STOP_GRACE"`
	CoalesceWindow   time.Duration `mapstructure:"COALESCE_WINDOW"`

	DefaultDepth     int           `mapstructure:"ANALYSIS_DEFAULT_DEPTH"`
	MultiPV          int           `mapstructure:"ANALYSIS_MULTI_PV"`
	AnalysisCacheTTL time.Duration `mapstructure:"ANALYSIS_CACHE_TTL"`

	PageLimitPuzzles  int `mapstructure:"PAGE_LIMIT_PUZZLES"`
	PageLimitAnalyses int `mapstructure:"PAGE_LIMIT_ANALYSES"`
}

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"GRPC_PORT":                "8082",
	"ENGINE_GRPC_ADDR":         "",
	"REDIS_URL":                "localhost:6379",
	"MONGO_URI":                "mongodb://localhost:27017",
	"MONGO_DATABASE":           "chess_review",
	"LOCAL_CORS":               false,
	"LOG_LEVEL":                "info",
	"STOCKFISH_PATH":           "",
	"ENGINE_THREADS":           0,
	"ENGINE_HASH_MB":           0,
	"ENGINE_HANDSHAKE_TIMEOUT": 8 * time.Second,
	"ENGINE_PER_DEPTH_TIMEOUT": time.Second,
	"ENGINE_MIN_JOB_TIMEOUT":   2 * time.Second,
	"ENGINE_MAX_JOB_TIMEOUT":   20 * time.Second,
	"ENGINE_STOP_GRACE":        500 * time.Millisecond,
	"COALESCE_WINDOW":          5 * time.Second,
	"ANALYSIS_DEFAULT_DEPTH":   12,
	"ANALYSIS_MULTI_PV":        2,
	"ANALYSIS_CACHE_TTL":       10 * time.Minute,
	"PAGE_LIMIT_PUZZLES":       20,
	"PAGE_LIMIT_ANALYSES":      50,
}

// Setup loads configuration from defaults, an optional env-style file at
// cfgPath and the process environment, in increasing priority.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
