// Package service ties the dataset, the forecasting engine and the presenter together.
// Front ends (CLI, Telegram bot) talk to a Forecaster and never to the engine directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rewired-gh/electcast/internal/config"
	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/forecast"
	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/metrics"
	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/presenter"
	"github.com/rewired-gh/electcast/internal/ranking"
	"github.com/rewired-gh/electcast/internal/storage"
)

// OutOfRangeError reports a request value outside the configured input bounds.
type OutOfRangeError struct {
	Field string
	Value int
	Min   int
	Max   int
	Step  int // Non-zero when values must sit on a step grid starting at Min
}

func (e *OutOfRangeError) Error() string {
	if e.Step > 0 && e.Value >= e.Min && e.Value <= e.Max {
		return fmt.Sprintf("%s %d must be %d plus a multiple of %d", e.Field, e.Value, e.Min, e.Step)
	}
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// Request asks for one constituency's forecast.
type Request struct {
	Constituency string
	Survey       *models.SurveyObservation // nil uses the record's survey, then the configured default
	Simulations  *int                      // nil uses the configured default
	Seed         uint64                    // 0 uses the service engine
}

// Loader produces a dataset from a location. *source.Client satisfies it.
type Loader interface {
	Open(ctx context.Context, location string) (*dataset.Dataset, error)
}

// Forecaster serves forecast views for the active dataset
type Forecaster struct {
	store      *storage.Storage
	engine     *forecast.Engine
	cfg        config.ForecastConfig
	ranking    config.RankingConfig
	box        presenter.BoundingBox
	coordSeed  int64
	priorMode  forecast.PriorMode
	fixedPrior models.PriorBelief
	cache      *viewCache
}

// New creates a Forecaster over store using cfg.
func New(store *storage.Storage, cfg *config.Config) (*Forecaster, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	fc := cfg.GetForecastConfig()

	mode, err := forecast.ParsePriorMode(fc.PriorMode)
	if err != nil {
		return nil, err
	}
	fixed := forecast.LaplacePrior(fc.PriorLeadVotes, fc.PriorTrailVotes)
	if err := fixed.Validate(); err != nil {
		return nil, err
	}

	opts := []forecast.Option{forecast.WithMaxSimulations(fc.EngineSimulationCap)}
	if fc.Seed != 0 {
		opts = append(opts, forecast.WithSeed(fc.Seed))
	}

	f := &Forecaster{
		store:      store,
		engine:     forecast.NewEngine(opts...),
		cfg:        fc,
		ranking:    cfg.Ranking,
		coordSeed:  cfg.Presenter.CoordinateSeed,
		priorMode:  mode,
		fixedPrior: fixed,
		box: presenter.BoundingBox{
			MinLatitude:  cfg.Presenter.MinLatitude,
			MaxLatitude:  cfg.Presenter.MaxLatitude,
			MinLongitude: cfg.Presenter.MinLongitude,
			MaxLongitude: cfg.Presenter.MaxLongitude,
		},
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL > 0 {
		f.cache = newViewCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	return f, nil
}

// Load replaces the active dataset with the one at location.
func (f *Forecaster) Load(ctx context.Context, loader Loader, location string) error {
	ds, err := loader.Open(ctx, location)
	if err != nil {
		metrics.RecordDatasetLoad(err, 0, 0)
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := f.store.Replace(ds, location); err != nil {
		metrics.RecordDatasetLoad(err, 0, 0)
		return fmt.Errorf("failed to store dataset: %w", err)
	}
	f.cache.flush()
	metrics.RecordDatasetLoad(nil, len(ds.Records), len(ds.Warnings))

	logger.Info("Loaded %d constituencies from %s", len(ds.Records), location)
	for _, w := range ds.Warnings {
		logger.Warn("Dataset warning: %v", w)
	}
	return nil
}

// Constituencies lists the loaded constituencies in file order.
func (f *Forecaster) Constituencies() []string {
	return f.store.Constituencies()
}

// Len returns the number of loaded constituencies.
func (f *Forecaster) Len() int {
	return f.store.Len()
}

// Search finds constituencies whose name contains query.
func (f *Forecaster) Search(query string) []string {
	return f.store.Search(query)
}

// DefaultSurvey returns the configured survey used when neither the request nor the
// record supplies one.
func (f *Forecaster) DefaultSurvey() models.SurveyObservation {
	return models.SurveyObservation{SurveyLead: f.cfg.SurveyLead, SurveyTrail: f.cfg.SurveyTrail}
}

// ValidateRequest checks survey counts and the simulation count against the
// configured bounds. A nil simulation count means "use the default" and passes;
// an explicit count that is not positive is an *models.InvalidSimulationCountError.
func (f *Forecaster) ValidateRequest(req Request) error {
	if req.Survey != nil {
		if err := f.checkRange("survey_lead", req.Survey.SurveyLead, 0, f.cfg.SurveyMax, 0); err != nil {
			return err
		}
		if err := f.checkRange("survey_trail", req.Survey.SurveyTrail, 0, f.cfg.SurveyMax, 0); err != nil {
			return err
		}
	}
	if req.Simulations != nil {
		n := *req.Simulations
		if n <= 0 {
			return &models.InvalidSimulationCountError{Count: n, Max: f.cfg.MaxSimulations}
		}
		return f.checkRange("simulations", n, f.cfg.MinSimulations, f.cfg.MaxSimulations, f.cfg.SimulationStep)
	}
	return nil
}

func (f *Forecaster) checkRange(field string, value, lo, hi, step int) error {
	if value < lo || value > hi {
		return &OutOfRangeError{Field: field, Value: value, Min: lo, Max: hi}
	}
	if step > 0 && (value-lo)%step != 0 {
		return &OutOfRangeError{Field: field, Value: value, Min: lo, Max: hi, Step: step}
	}
	return nil
}

// Forecast builds the forecast view for one constituency.
func (f *Forecaster) Forecast(ctx context.Context, req Request) (*presenter.View, error) {
	if err := f.ValidateRequest(req); err != nil {
		var countErr *models.InvalidSimulationCountError
		if errors.As(err, &countErr) {
			metrics.RecordForecast(errorKind(err), 0, 0)
			return nil, err
		}
		metrics.RecordForecast("invalid_request", 0, 0)
		return nil, err
	}

	record, err := f.store.Get(req.Constituency)
	if err != nil {
		metrics.RecordForecast("missing_constituency", 0, 0)
		return nil, err
	}

	prior, priorFromRecord := forecast.SelectPrior(f.priorMode, &record, f.fixedPrior, f.cfg.PriorWeight)
	survey := f.DefaultSurvey()
	switch {
	case req.Survey != nil:
		survey = *req.Survey
	case record.HasSurvey:
		survey = models.SurveyObservation{SurveyLead: record.SurveyLead, SurveyTrail: record.SurveyTrail}
	}
	n := f.cfg.Simulations
	if req.Simulations != nil {
		n = *req.Simulations
	}

	key := viewKey{Constituency: record.Constituency, Prior: prior, Survey: survey, Simulations: n, Seed: req.Seed}
	if view, ok := f.cache.get(key); ok {
		metrics.RecordForecast("cached", 0, 0)
		logger.Debug("Forecast cache hit for %s", key)
		return view, nil
	}

	posterior, err := forecast.ComputePosterior(prior, survey)
	if err != nil {
		metrics.RecordForecast(errorKind(err), 0, 0)
		return nil, err
	}

	engine := f.engine
	if req.Seed != 0 {
		engine = forecast.NewEngine(forecast.WithSeed(req.Seed), forecast.WithMaxSimulations(f.cfg.EngineSimulationCap))
	}

	start := time.Now()
	result, err := engine.Simulate(ctx, posterior, n)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordForecast(errorKind(err), 0, 0)
		return nil, err
	}
	// The view carries the exact density curve, so the raw draws are not kept.
	result.Samples = nil

	view, err := presenter.Build(presenter.Input{
		Record:          record,
		Prior:           prior,
		PriorFromRecord: priorFromRecord,
		Survey:          survey,
		Result:          result,
		CurvePoints:     f.cfg.CurvePoints,
		Warnings:        f.store.WarningsFor(record.Constituency),
	})
	if err != nil {
		metrics.RecordForecast("presenter", 0, 0)
		return nil, fmt.Errorf("failed to build view: %w", err)
	}

	metrics.RecordForecast("ok", n, elapsed.Seconds())
	logger.With(logger.Fields{
		"constituency": record.Constituency,
		"alpha_post":   posterior.AlphaPost,
		"beta_post":    posterior.BetaPost,
		"simulations":  n,
		"prob_lead":    result.ProbLead,
		"took":         elapsed,
	}).Debug("Forecast computed")

	f.cache.set(key, view)
	return view, nil
}

// Rank forecasts every loaded constituency and returns the k closest races.
// k <= 0 uses the configured top_k.
func (f *Forecaster) Rank(ctx context.Context, k int) ([]ranking.Race, []ranking.RaceError, error) {
	if k <= 0 {
		k = f.ranking.TopK
	}
	start := time.Now()
	races, raceErrors, err := ranking.Sweep(ctx, f.store.All(), ranking.Plan{
		Engine:        f.engine,
		PriorMode:     f.priorMode,
		FixedPrior:    f.fixedPrior,
		PriorWeight:   f.cfg.PriorWeight,
		DefaultSurvey: f.DefaultSurvey(),
		Simulations:   f.cfg.Simulations,
		Workers:       f.ranking.Workers,
		Seed:          f.cfg.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordSweep(time.Since(start).Seconds())
	for _, re := range raceErrors {
		logger.Warn("Failed to forecast %s: %v", re.Constituency, re.Err)
	}
	return ranking.Rank(races, k), raceErrors, nil
}

// MapPoints places every loaded constituency on the map.
func (f *Forecaster) MapPoints() []presenter.MapPoint {
	return presenter.MapPoints(f.store.All(), f.store.Locations(), f.box, f.coordSeed)
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	var (
		priorErr  *models.InvalidPriorError
		surveyErr *models.InvalidSurveyError
		countErr  *models.InvalidSimulationCountError
	)
	switch {
	case errors.As(err, &priorErr):
		return "invalid_prior"
	case errors.As(err, &surveyErr):
		return "invalid_survey"
	case errors.As(err, &countErr):
		return "invalid_simulation_count"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
