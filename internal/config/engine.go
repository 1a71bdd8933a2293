package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EngineConfig carries every tunable of the analysis engine. The zero value
// is not usable; start from DefaultConfig().Engine.
type EngineConfig struct {
	DefaultTimezone string `mapstructure:"default_timezone"` // used when an asset has none
	WindowDays      int    `mapstructure:"window_days"`      // readings window fetched per analysis

	NoiseThresholdPct  float64 `mapstructure:"noise_threshold_pct"`
	RefillThresholdPct float64 `mapstructure:"refill_threshold_pct"`
	MinBaselineDays    int     `mapstructure:"min_baseline_days"`
	OutlierSigma       float64 `mapstructure:"outlier_sigma"`

	LookbackDays       int     `mapstructure:"lookback_days"`
	SpikeMultiplier    float64 `mapstructure:"spike_multiplier"`
	MinConsecutiveDays int     `mapstructure:"min_consecutive_days"`
	EndQuietDays       int     `mapstructure:"end_quiet_days"`

	LeadTimeDays    int     `mapstructure:"lead_time_days"`
	TargetLevelPct  float64 `mapstructure:"target_level_pct"`
	LowLevelPct     float64 `mapstructure:"low_level_pct"`
	MaxPlanningDays int     `mapstructure:"max_planning_days"`
	DefaultStrategy string  `mapstructure:"default_strategy"` // none, operation, risk

	OperationHorizonDays int     `mapstructure:"operation_horizon_days"`
	RiskMinProbability   float64 `mapstructure:"risk_min_probability"`
	SafetyMarginDays     int     `mapstructure:"safety_margin_days"`

	MaxAnomalies int `mapstructure:"max_anomalies"`
}

// Validate validates engine configuration
func (c *EngineConfig) Validate() error {
	if _, err := ResolveTimezone(c.DefaultTimezone); err != nil {
		return fmt.Errorf("engine.default_timezone: %w", err)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("engine.window_days must be at least 1")
	}
	if c.NoiseThresholdPct < 0 || c.RefillThresholdPct <= 0 {
		return fmt.Errorf("engine noise/refill thresholds must be positive")
	}
	if c.MinBaselineDays < 1 || c.OutlierSigma <= 0 {
		return fmt.Errorf("engine baseline settings must be positive")
	}
	if c.LookbackDays < 1 || c.MinConsecutiveDays < 1 || c.EndQuietDays < 1 {
		return fmt.Errorf("engine operation day counts must be at least 1")
	}
	if c.SpikeMultiplier <= 1 {
		return fmt.Errorf("engine.spike_multiplier must be greater than 1")
	}
	if c.LeadTimeDays < 0 {
		return fmt.Errorf("engine.lead_time_days cannot be negative")
	}
	if c.LowLevelPct < 0 || c.TargetLevelPct <= c.LowLevelPct || c.TargetLevelPct > 100 {
		return fmt.Errorf("engine levels must satisfy 0 <= low_level_pct < target_level_pct <= 100")
	}
	if c.MaxPlanningDays < 1 {
		return fmt.Errorf("engine.max_planning_days must be at least 1")
	}
	switch c.DefaultStrategy {
	case "", "none", "operation", "risk":
	default:
		return fmt.Errorf("engine.default_strategy must be one of: none, operation, risk")
	}
	if c.RiskMinProbability < 0 || c.RiskMinProbability > 1 {
		return fmt.Errorf("engine.risk_min_probability must be within [0, 1]")
	}
	if c.OperationHorizonDays < 1 || c.SafetyMarginDays < 0 {
		return fmt.Errorf("engine horizon and safety margin must be positive")
	}
	if c.MaxAnomalies < 1 {
		return fmt.Errorf("engine.max_anomalies must be at least 1")
	}
	return nil
}

// Location resolves DefaultTimezone.
func (c *EngineConfig) Location() (*time.Location, error) {
	return ResolveTimezone(c.DefaultTimezone)
}

// ConfigVersion is a short stable hash of every engine tunable. Cached
// results are keyed by it so a config change never serves stale output.
func (c *EngineConfig) ConfigVersion() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v", *c)))
	return hex.EncodeToString(sum[:6])
}
