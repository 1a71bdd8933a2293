package models

// AnalysisQuery represents the query string accepted by every asset
// endpoint. Empty values take the engine configuration.
type AnalysisQuery struct {
	WindowDays      string `query:"window_days"`
	End             string `query:"end"` // RFC3339 or YYYY-MM-DD
	Strategy        string `query:"strategy"`
	LeadTimeDays    string `query:"lead_time_days"`
	TargetPct       string `query:"target_pct"`
	LowLevelPct     string `query:"low_level_pct"`
	SpikeMultiplier string `query:"spike_multiplier"`
	Refresh         string `query:"refresh"`
}
