package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/soltixdb/tankwatch/internal/models"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/utils"
)

func badParam(name, value, message string) *services.ServiceError {
	return services.NewServiceErrorWithDetails(services.CodeInvalidRequest, message,
		map[string]interface{}{"parameter": name, "value": value})
}

// parseEnd accepts RFC3339 or a bare date. A bare date means the last
// second of that day in UTC.
func parseEnd(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return day.AddDate(0, 0, 1).Add(-time.Second), nil
}

func parseOptionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseAnalysisQuery converts the raw query into a service request. Range
// checks that depend on engine configuration are left to the service.
func parseAnalysisQuery(assetID string, q models.AnalysisQuery) (services.AnalysisRequest, error) {
	req := services.AnalysisRequest{
		AssetID:  strings.TrimSpace(assetID),
		Strategy: strings.ToLower(strings.TrimSpace(q.Strategy)),
	}

	if q.WindowDays != "" {
		days, err := strconv.Atoi(q.WindowDays)
		if err != nil || days < 1 {
			return req, badParam("window_days", q.WindowDays, "window_days must be a positive integer")
		}
		req.WindowDays = days
	}

	if q.End != "" {
		end, err := parseEnd(q.End)
		if err != nil {
			return req, badParam("end", q.End, "end must be RFC3339 or YYYY-MM-DD")
		}
		req.End = end
	}

	lead, err := parseOptionalInt(q.LeadTimeDays)
	if err != nil {
		return req, badParam("lead_time_days", q.LeadTimeDays, "lead_time_days must be an integer")
	}
	req.LeadTimeDays = lead

	floats := []struct {
		name  string
		value string
		dst   **float64
	}{
		{"target_pct", q.TargetPct, &req.TargetLevelPct},
		{"low_level_pct", q.LowLevelPct, &req.LowLevelPct},
		{"spike_multiplier", q.SpikeMultiplier, &req.SpikeMultiplier},
	}
	for _, f := range floats {
		v, err := utils.ParseOptionalFloat(f.value)
		if err != nil {
			return req, badParam(f.name, f.value, f.name+" must be a number")
		}
		*f.dst = v
	}

	if q.Refresh != "" {
		refresh, err := strconv.ParseBool(q.Refresh)
		if err != nil {
			return req, badParam("refresh", q.Refresh, "refresh must be a boolean")
		}
		req.Refresh = refresh
	}

	return req, nil
}
