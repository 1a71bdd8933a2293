package services

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/anomaly"
	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/analytics/forecast"
	"github.com/soltixdb/tankwatch/internal/analytics/health"
	"github.com/soltixdb/tankwatch/internal/analytics/operation"
	"github.com/soltixdb/tankwatch/internal/cache"
	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/contextprovider"
	"github.com/soltixdb/tankwatch/internal/delivery"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/queue"
	"github.com/soltixdb/tankwatch/internal/source"
	"github.com/soltixdb/tankwatch/internal/telemetry"
	"github.com/soltixdb/tankwatch/internal/utils"
)

const cacheKindAnalysis = "analysis"

// AnalysisService runs the full engine pipeline for one asset
type AnalysisService struct {
	logger      *logging.Logger
	source      source.Source
	provider    contextprovider.Provider
	cache       cache.Cache
	publisher   queue.Publisher
	engine      config.EngineConfig
	worker      config.WorkerConfig
	version     string
	recommender *delivery.Recommender
	now         func() time.Time
}

// NewAnalysisService creates a new AnalysisService. provider, resultCache
// and publisher may be nil.
func NewAnalysisService(
	logger *logging.Logger,
	src source.Source,
	provider contextprovider.Provider,
	resultCache cache.Cache,
	publisher queue.Publisher,
	engine config.EngineConfig,
	worker config.WorkerConfig,
) *AnalysisService {
	if resultCache == nil {
		resultCache = cache.Noop{}
	}
	return &AnalysisService{
		logger:      logger,
		source:      src,
		provider:    provider,
		cache:       resultCache,
		publisher:   publisher,
		engine:      engine,
		worker:      worker,
		version:     engine.ConfigVersion(),
		recommender: delivery.NewRecommender(engine.MaxPlanningDays),
		now:         time.Now,
	}
}

// ConfigVersion returns the engine configuration hash results are keyed by.
func (s *AnalysisService) ConfigVersion() string {
	return s.version
}

// OperationResult pairs start detection with end detection of the same run.
type OperationResult struct {
	Start operation.Detection     `json:"start"`
	End   *operation.EndDetection `json:"end,omitempty"`
}

// AnalysisResult is the output of every pipeline stage for one window
type AnalysisResult struct {
	AssetID       string            `json:"asset_id"`
	Timezone      string            `json:"timezone"`
	WindowStart   time.Time         `json:"window_start"`
	WindowEnd     time.Time         `json:"window_end"`
	ReadingCount  int               `json:"reading_count"`
	Strategy      delivery.Strategy `json:"strategy"`
	ConfigVersion string            `json:"config_version"`
	ComputedAt    time.Time         `json:"computed_at"`
	Cached        bool              `json:"cached"`

	Daily          []consumption.DailyConsumption `json:"daily"`
	Baseline       consumption.BaselineResult     `json:"baseline"`
	Operation      OperationResult                `json:"operation"`
	Anomalies      []anomaly.Anomaly              `json:"anomalies"`
	Battery        forecast.BatteryPrediction     `json:"battery"`
	Forecast       forecast.ConsumptionForecast   `json:"forecast"`
	Health         health.DeviceHealth            `json:"health"`
	Recommendation delivery.Recommendation        `json:"recommendation"`
}

// Analyze fetches the window and runs daily aggregation, baseline,
// operation detection, anomaly detection, battery and consumption
// forecasts, device health and the delivery recommendation, in that order.
// Fresh results are cached and their recommendation published.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	startExec := time.Now()

	r, err := resolve(req, s.engine, s.now())
	if err != nil {
		return nil, err
	}

	key := cache.Key{
		AssetID:       r.assetID,
		Kind:          cacheKindAnalysis,
		WindowEnd:     r.end,
		ConfigVersion: s.version,
		Variant:       r.variant(),
	}
	if !r.refresh {
		var cached AnalysisResult
		hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.Warn("Result cache lookup failed", "asset_id", r.assetID, "error", err)
		}
		if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	result, err := s.compute(ctx, r)
	if err != nil {
		se := classify(r.assetID, err)
		s.logger.Warn("Analysis failed",
			"asset_id", r.assetID,
			"code", se.Code,
			"error", err)
		return nil, se
	}

	if err := cache.SetJSON(ctx, s.cache, key, result); err != nil {
		s.logger.Warn("Result cache store failed", "asset_id", r.assetID, "error", err)
	}
	s.publish(ctx, result)

	s.logger.Info("Analysis completed",
		"asset_id", r.assetID,
		"readings", result.ReadingCount,
		"days", len(result.Daily),
		"urgency", result.Recommendation.UrgencyLevel,
		"strategy", result.Strategy,
		"duration", time.Since(startExec))

	return result, nil
}

func (s *AnalysisService) compute(ctx context.Context, r effectiveRequest) (*AnalysisResult, error) {
	asset, err := s.source.GetAsset(ctx, r.assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", r.assetID, err)
	}
	if asset.CapacityLiters <= 0 {
		return nil, telemetry.ErrInvalidCapacity
	}

	loc, tzName, err := s.location(asset)
	if err != nil {
		return nil, err
	}

	end := r.end.In(loc)
	start := end.AddDate(0, 0, -r.windowDays)
	readings, err := s.source.FetchReadings(ctx, asset.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch readings for %s: %w", asset.ID, err)
	}
	if len(readings) == 0 {
		return nil, telemetry.ErrNoReadings
	}

	days, err := consumption.AggregateDaily(readings, consumption.DailyOptions{
		Location:           loc,
		CapacityLiters:     asset.CapacityLiters,
		Exclusions:         asset.Exclusions,
		NoiseThresholdPct:  s.engine.NoiseThresholdPct,
		RefillThresholdPct: s.engine.RefillThresholdPct,
	})
	if err != nil {
		return nil, err
	}

	baseline := consumption.EstimateBaseline(days, consumption.BaselineOptions{
		WindowDays:        r.windowDays,
		CapacityLiters:    asset.CapacityLiters,
		MinDays:           s.engine.MinBaselineDays,
		OutlierSigma:      s.engine.OutlierSigma,
		NoiseThresholdPct: s.engine.NoiseThresholdPct,
	})

	opCfg := operation.DefaultConfig()
	opCfg.LookbackDays = s.engine.LookbackDays
	opCfg.SpikeMultiplier = r.spikeMultiplier
	opCfg.MinConsecutiveDays = s.engine.MinConsecutiveDays
	opCfg.EndQuietDays = s.engine.EndQuietDays
	op := OperationResult{Start: operation.DetectStart(days, baseline, opCfg)}
	if op.Start.OperationDetected && op.Start.DetectedStartDate != nil {
		ended := operation.DetectEnd(days, baseline, *op.Start.DetectedStartDate, opCfg)
		op.End = &ended
	}

	anCfg := anomaly.DefaultConfig()
	anCfg.NoiseThresholdPct = s.engine.NoiseThresholdPct
	anCfg.RefillThresholdPct = s.engine.RefillThresholdPct
	anCfg.MaxAnomalies = s.engine.MaxAnomalies
	anomalies := anomaly.Detect(anomaly.Input{
		Readings: readings,
		Days:     days,
		Baseline: baseline,
		Location: loc,
	}, anCfg)
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}

	battery := forecast.PredictBattery(readings, forecast.DefaultBatteryConfig())

	fcCfg := forecast.DefaultConsumptionConfig()
	fcCfg.CapacityLiters = asset.CapacityLiters
	fcCfg.LowLevelPct = r.lowLevelPct
	fcCfg.RefillThresholdPct = s.engine.RefillThresholdPct
	fc := forecast.ForecastConsumption(readings, days, fcCfg)

	deviceHealth := health.Assess(battery, readings, health.DefaultConfig())

	evaluator, err := s.evaluator(ctx, r.strategy, asset, end)
	if err != nil {
		return nil, err
	}
	rec, err := s.recommender.Recommend(delivery.Request{
		AssetID:                asset.ID,
		CapacityLiters:         asset.CapacityLiters,
		CurrentLevelLiters:     currentLevelLiters(readings, fc, asset.CapacityLiters),
		DailyConsumptionLiters: dailyConsumptionLiters(baseline, fc),
		TargetLevelPct:         r.targetLevelPct,
		LowLevelPct:            r.lowLevelPct,
		LeadTimeDays:           r.leadTimeDays,
		Today:                  end,
		Location:               loc,
	}, evaluator)
	if err != nil {
		return nil, err
	}

	if days == nil {
		days = []consumption.DailyConsumption{}
	}
	return &AnalysisResult{
		AssetID:        asset.ID,
		Timezone:       tzName,
		WindowStart:    start,
		WindowEnd:      end,
		ReadingCount:   len(readings),
		Strategy:       r.strategy,
		ConfigVersion:  s.version,
		ComputedAt:     s.now().UTC(),
		Daily:          days,
		Baseline:       baseline,
		Operation:      op,
		Anomalies:      anomalies,
		Battery:        battery,
		Forecast:       fc,
		Health:         deviceHealth,
		Recommendation: rec,
	}, nil
}

// location resolves the asset timezone, falling back to the engine default.
func (s *AnalysisService) location(asset *telemetry.Asset) (*time.Location, string, error) {
	name := asset.Timezone
	if name == "" {
		name = s.engine.DefaultTimezone
	}
	loc, err := config.ResolveTimezone(name)
	if err != nil {
		return nil, "", invalidRequest(fmt.Sprintf("asset %s has an invalid timezone", asset.ID),
			map[string]interface{}{"asset_id": asset.ID, "timezone": name, "error": err.Error()})
	}
	return loc, name, nil
}

// evaluator builds the context evaluator for strategy from the provider.
func (s *AnalysisService) evaluator(ctx context.Context, strategy delivery.Strategy, asset *telemetry.Asset, today time.Time) (delivery.ContextEvaluator, error) {
	if s.provider == nil || strategy == delivery.StrategyNone {
		return delivery.NoContext{}, nil
	}

	from := telemetry.StartOfDay(today)
	to := from.AddDate(0, 0, s.engine.OperationHorizonDays)

	switch strategy {
	case delivery.StrategyOperation:
		ops, err := s.provider.UpcomingOperations(ctx, asset.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load upcoming operations: %w", err)
		}
		ev := delivery.NewOperationEvaluator(ops)
		ev.HorizonDays = s.engine.OperationHorizonDays
		return ev, nil

	case delivery.StrategyRisk:
		region := telemetry.Region{ID: asset.RegionID}
		var (
			events      []telemetry.WeatherEvent
			assessments []telemetry.RoadRiskAssessment
		)
		if asset.RegionID != "" {
			var err error
			if events, err = s.provider.WeatherEvents(ctx, asset.RegionID, from, to); err != nil {
				return nil, fmt.Errorf("failed to load weather events: %w", err)
			}
			known, err := s.provider.Region(ctx, asset.RegionID)
			if err != nil {
				return nil, fmt.Errorf("failed to load region: %w", err)
			}
			if known != nil {
				region = *known
			}
			if assessments, err = s.provider.RoadRisk(ctx, asset.RegionID); err != nil {
				return nil, fmt.Errorf("failed to load road risk: %w", err)
			}
		}
		ev := delivery.NewRiskEvaluator(events, region, assessments)
		ev.MinProbability = s.engine.RiskMinProbability
		ev.SafetyMarginDays = s.engine.SafetyMarginDays
		ev.HorizonDays = s.engine.OperationHorizonDays
		return ev, nil
	}

	return delivery.NoContext{}, nil
}

// publish emits the recommendation when it is urgent enough, or always when
// publish_all is set. Failures are logged; the analysis result stands.
func (s *AnalysisService) publish(ctx context.Context, result *AnalysisResult) {
	if s.publisher == nil {
		return
	}
	rec := result.Recommendation
	if !s.worker.PublishAll && rec.UrgencyLevel != delivery.UrgencyCritical && rec.UrgencyLevel != delivery.UrgencyWarning {
		return
	}

	subject := s.worker.RecommendationsSubject
	if subject == "" {
		subject = utils.SubjectRecommendations
	}

	event := queue.RecommendationEvent{
		ID:            queue.NewEventID(),
		AssetID:       rec.AssetID,
		UrgencyLevel:  string(rec.UrgencyLevel),
		OrderByDate:   rec.OrderByDate.Format("2006-01-02"),
		LitersNeeded:  utils.Round(rec.LitersNeeded, 1),
		DaysOfBuffer:  float64(rec.DaysOfBuffer),
		Reason:        rec.Reason,
		Strategy:      string(result.Strategy),
		ConfigVersion: result.ConfigVersion,
		WindowEnd:     result.WindowEnd.UTC(),
		ComputedAt:    result.ComputedAt,
	}

	pctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()
	if err := queue.PublishJSON(pctx, s.publisher, subject, event); err != nil {
		s.logger.Warn("Failed to publish recommendation",
			"asset_id", rec.AssetID,
			"subject", subject,
			"error", err)
		return
	}
	s.logger.Debug("Recommendation published",
		"asset_id", rec.AssetID,
		"urgency", rec.UrgencyLevel,
		"event_id", event.ID)
}

// currentLevelLiters prefers the forecast's value and falls back to the
// newest reading. readings may be in any order.
func currentLevelLiters(readings []telemetry.Reading, fc forecast.ConsumptionForecast, capacity float64) float64 {
	if fc.CurrentLevelLiters != nil {
		return *fc.CurrentLevelLiters
	}
	latest, ok := telemetry.Latest(telemetry.SortedCopy(readings))
	if !ok {
		return 0
	}
	if latest.LevelLiters != nil {
		return *latest.LevelLiters
	}
	return latest.LevelPercent * capacity / 100
}

// dailyConsumptionLiters uses the measured baseline, then the regression
// rate since the last refill, then the conservative default baseline.
func dailyConsumptionLiters(baseline consumption.BaselineResult, fc forecast.ConsumptionForecast) float64 {
	if !baseline.IsDefault && baseline.BaselineLitersPerDay != nil {
		return *baseline.BaselineLitersPerDay
	}
	if fc.RateLitersPerDay != nil && *fc.RateLitersPerDay > 0 {
		return *fc.RateLitersPerDay
	}
	if baseline.BaselineLitersPerDay != nil {
		return *baseline.BaselineLitersPerDay
	}
	return 0
}
