package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/delivery"
	"github.com/soltixdb/tankwatch/internal/utils"
)

// AnalysisRequest selects an asset, a reading window and optional overrides
// of the engine configuration. Nil overrides take the configured values.
type AnalysisRequest struct {
	AssetID string

	// End is the inclusive end of the window; zero means now, truncated to
	// the minute.
	End        time.Time
	WindowDays int

	Strategy        string
	LeadTimeDays    *int
	TargetLevelPct  *float64
	LowLevelPct     *float64
	SpikeMultiplier *float64

	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool
}

// effectiveRequest is an AnalysisRequest with every override resolved.
type effectiveRequest struct {
	assetID         string
	end             time.Time
	windowDays      int
	strategy        delivery.Strategy
	leadTimeDays    int
	targetLevelPct  float64
	lowLevelPct     float64
	spikeMultiplier float64
	refresh         bool
}

// variant encodes the resolved overrides for the cache key.
func (r effectiveRequest) variant() string {
	return strings.Join([]string{
		fmt.Sprintf("w%d", r.windowDays),
		"s" + string(r.strategy),
		fmt.Sprintf("lt%d", r.leadTimeDays),
		fmt.Sprintf("tp%g", r.targetLevelPct),
		fmt.Sprintf("lp%g", r.lowLevelPct),
		fmt.Sprintf("sm%g", r.spikeMultiplier),
	}, ",")
}

// resolve validates req and fills defaults from the engine configuration.
func resolve(req AnalysisRequest, engine config.EngineConfig, now time.Time) (effectiveRequest, error) {
	if strings.TrimSpace(req.AssetID) == "" {
		return effectiveRequest{}, invalidRequest("asset_id is required", nil)
	}

	r := effectiveRequest{
		assetID:         req.AssetID,
		end:             req.End,
		windowDays:      engine.WindowDays,
		leadTimeDays:    engine.LeadTimeDays,
		targetLevelPct:  engine.TargetLevelPct,
		lowLevelPct:     engine.LowLevelPct,
		spikeMultiplier: engine.SpikeMultiplier,
		refresh:         req.Refresh,
	}
	if r.end.IsZero() {
		r.end = now.Truncate(time.Minute)
	}

	if req.WindowDays != 0 {
		if req.WindowDays < 1 || req.WindowDays > utils.MaxWindowDays {
			return r, invalidRequest(fmt.Sprintf("window_days must be between 1 and %d", utils.MaxWindowDays),
				map[string]interface{}{"window_days": req.WindowDays})
		}
		r.windowDays = req.WindowDays
	}

	name := req.Strategy
	if name == "" {
		name = engine.DefaultStrategy
	}
	strategy, err := delivery.ParseStrategy(name)
	if err != nil {
		return r, invalidRequest(err.Error(), map[string]interface{}{"strategy": req.Strategy})
	}
	r.strategy = strategy

	if req.LeadTimeDays != nil {
		if *req.LeadTimeDays < 0 || *req.LeadTimeDays > utils.MaxLeadTimeDays {
			return r, invalidRequest(fmt.Sprintf("lead_time_days must be between 0 and %d", utils.MaxLeadTimeDays),
				map[string]interface{}{"lead_time_days": *req.LeadTimeDays})
		}
		r.leadTimeDays = *req.LeadTimeDays
	}
	if req.TargetLevelPct != nil {
		r.targetLevelPct = *req.TargetLevelPct
	}
	if req.LowLevelPct != nil {
		r.lowLevelPct = *req.LowLevelPct
	}
	if r.lowLevelPct < 0 || r.targetLevelPct <= r.lowLevelPct || r.targetLevelPct > 100 {
		return r, invalidRequest("levels must satisfy 0 <= low_level_pct < target_pct <= 100",
			map[string]interface{}{"target_pct": r.targetLevelPct, "low_level_pct": r.lowLevelPct})
	}
	if req.SpikeMultiplier != nil {
		if *req.SpikeMultiplier <= 1 {
			return r, invalidRequest("spike_multiplier must be greater than 1",
				map[string]interface{}{"spike_multiplier": *req.SpikeMultiplier})
		}
		r.spikeMultiplier = *req.SpikeMultiplier
	}

	return r, nil
}
