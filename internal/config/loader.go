package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TANKWATCH_SOURCE_DSN.
const EnvPrefix = "TANKWATCH"

// LoadDotEnv loads KEY=VALUE files into the process environment before
// Load runs. Missing files are ignored; values already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tankwatch")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults mirrors DefaultConfig so every key is known to viper, which
// AutomaticEnv needs to resolve overrides for keys absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_keys", d.Auth.APIKeys)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)

	e := d.Engine
	v.SetDefault("engine.default_timezone", e.DefaultTimezone)
	v.SetDefault("engine.window_days", e.WindowDays)
	v.SetDefault("engine.noise_threshold_pct", e.NoiseThresholdPct)
	v.SetDefault("engine.refill_threshold_pct", e.RefillThresholdPct)
	v.SetDefault("engine.min_baseline_days", e.MinBaselineDays)
	v.SetDefault("engine.outlier_sigma", e.OutlierSigma)
	v.SetDefault("engine.lookback_days", e.LookbackDays)
	v.SetDefault("engine.spike_multiplier", e.SpikeMultiplier)
	v.SetDefault("engine.min_consecutive_days", e.MinConsecutiveDays)
	v.SetDefault("engine.end_quiet_days", e.EndQuietDays)
	v.SetDefault("engine.lead_time_days", e.LeadTimeDays)
	v.SetDefault("engine.target_level_pct", e.TargetLevelPct)
	v.SetDefault("engine.low_level_pct", e.LowLevelPct)
	v.SetDefault("engine.max_planning_days", e.MaxPlanningDays)
	v.SetDefault("engine.default_strategy", e.DefaultStrategy)
	v.SetDefault("engine.operation_horizon_days", e.OperationHorizonDays)
	v.SetDefault("engine.risk_min_probability", e.RiskMinProbability)
	v.SetDefault("engine.safety_margin_days", e.SafetyMarginDays)
	v.SetDefault("engine.max_anomalies", e.MaxAnomalies)

	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.dsn", d.Source.DSN)
	v.SetDefault("source.max_conns", d.Source.MaxConns)
	v.SetDefault("source.query_timeout", d.Source.QueryTimeout)

	v.SetDefault("context.type", d.Context.Type)
	v.SetDefault("context.prefix", d.Context.Prefix)
	v.SetDefault("context.cache_ttl", d.Context.CacheTTL)

	v.SetDefault("etcd.endpoints", d.Etcd.Endpoints)
	v.SetDefault("etcd.dial_timeout", d.Etcd.DialTimeout)
	v.SetDefault("etcd.username", "")
	v.SetDefault("etcd.password", "")

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.redis_consumer", "")
	v.SetDefault("queue.redis_claim_idle", d.Queue.RedisClaimIdle)
	v.SetDefault("queue.kafka_brokers", d.Queue.KafkaBrokers)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	v.SetDefault("worker.readings_subject", d.Worker.ReadingsSubject)
	v.SetDefault("worker.recommendations_subject", d.Worker.RecommendationsSubject)
	v.SetDefault("worker.publish_all", d.Worker.PublishAll)
	v.SetDefault("worker.process_timeout", d.Worker.ProcessTimeout)
	v.SetDefault("worker.sweep_interval", d.Worker.SweepInterval)
	v.SetDefault("worker.sweep_assets", d.Worker.SweepAssets)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5555,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
		Engine: EngineConfig{
			DefaultTimezone:      "UTC",
			WindowDays:           90,
			NoiseThresholdPct:    0.5,
			RefillThresholdPct:   10,
			MinBaselineDays:      7,
			OutlierSigma:         3,
			LookbackDays:         7,
			SpikeMultiplier:      2.0,
			MinConsecutiveDays:   2,
			EndQuietDays:         3,
			LeadTimeDays:         3,
			TargetLevelPct:       70,
			LowLevelPct:          20,
			MaxPlanningDays:      90,
			DefaultStrategy:      "none",
			OperationHorizonDays: 30,
			RiskMinProbability:   0.5,
			SafetyMarginDays:     1,
			MaxAnomalies:         10,
		},
		Source: SourceConfig{
			Type:         "memory",
			MaxConns:     10,
			QueryTimeout: 10 * time.Second,
		},
		Context: ContextConfig{
			Type:     "memory",
			Prefix:   "/tankwatch",
			CacheTTL: 5 * time.Minute,
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Type:       "memory",
			TTL:        15 * time.Minute,
			MaxEntries: 1024,
			KeyPrefix:  "tankwatch:result:",
			RedisURL:   "redis://localhost:6379",
		},
		Queue: QueueConfig{
			Type:           "memory",
			URL:            "nats://localhost:4222",
			RedisStream:    "tankwatch",
			RedisGroup:     "tankwatch-group",
			RedisClaimIdle: 30 * time.Second,
			KafkaBrokers:   []string{"localhost:9092"},
			KafkaGroupID:   "tankwatch-group",
		},
		Worker: WorkerConfig{
			ReadingsSubject:        "tank.readings.updated",
			RecommendationsSubject: "tank.recommendations",
			ProcessTimeout:         30 * time.Second,
		},
	}
}
