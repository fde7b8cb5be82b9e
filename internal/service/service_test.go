package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/electcast/internal/config"
	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/storage"
)

const sampleCSV = ` Constituency , Leading Candidate , Leading Party , Trailing Candidate , Trailing Party , Margin , Leading Votes , Trailing Votes , Survey Lead , Survey Trail
Varanasi,Asha,PA,Bharat,PB,"12,000",600,400,,
Amethi,Chitra,PC,Dev,PD,,550,450,300,300
Puri,Esha,PE,Farid,PF,800,,,,
`

type stringLoader struct {
	body string
	err  error
}

func (l stringLoader) Open(_ context.Context, _ string) (*dataset.Dataset, error) {
	if l.err != nil {
		return nil, l.err
	}
	return dataset.Parse(strings.NewReader(l.body), dataset.Options{})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Forecast.Seed = 11
	cfg.Forecast.CurvePoints = 200
	require.NoError(t, cfg.Validate())
	return cfg
}

func newForecaster(t *testing.T, cfg *config.Config) *Forecaster {
	t.Helper()
	f, err := New(storage.New(cfg.Dataset.MaxRecords), cfg)
	require.NoError(t, err)
	require.NoError(t, f.Load(context.Background(), stringLoader{body: sampleCSV}, "memory"))
	return f
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	_, err := New(nil, cfg)
	assert.Error(t, err)

	_, err = New(storage.New(0), nil)
	assert.Error(t, err)

	bad := *cfg
	bad.Forecast.PriorMode = "guess"
	_, err = New(storage.New(0), &bad)
	assert.Error(t, err)
}

func TestForecastReferenceScenario(t *testing.T) {
	f := newForecaster(t, testConfig(t))

	view, err := f.Forecast(context.Background(), Request{Constituency: "Varanasi"})
	require.NoError(t, err)

	assert.Equal(t, models.PriorBelief{AlphaPrior: 6001, BetaPrior: 4001}, view.Prior)
	assert.Equal(t, models.SurveyObservation{SurveyLead: 58, SurveyTrail: 42}, view.Survey)
	assert.Equal(t, 10000, view.Result.Simulations)
	assert.Nil(t, view.Result.Samples)
	assert.InDelta(t, view.AnalyticProbLead, view.Result.ProbLead, 0.02)
	assert.Len(t, view.Curve.X, 200)
	assert.Equal(t, "12,000", view.Summary.Margin)
}

func TestForecastUsesRecordSurveyAndPrior(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forecast.PriorMode = "record"
	f := newForecaster(t, cfg)

	view, err := f.Forecast(context.Background(), Request{Constituency: "Amethi"})
	require.NoError(t, err)
	assert.True(t, view.PriorFromRecord)
	assert.Equal(t, models.PriorBelief{AlphaPrior: 551, BetaPrior: 451}, view.Prior)
	assert.Equal(t, models.SurveyObservation{SurveyLead: 300, SurveyTrail: 300}, view.Survey)
	assert.Equal(t, models.NotAvailable, view.Summary.Margin)
	assert.NotEmpty(t, view.Summary.Warnings)

	// explicit survey wins over the record's
	survey := models.SurveyObservation{SurveyLead: 10, SurveyTrail: 5}
	view, err = f.Forecast(context.Background(), Request{Constituency: "Amethi", Survey: &survey})
	require.NoError(t, err)
	assert.Equal(t, survey, view.Survey)

	// no historical votes falls back to the fixed prior
	view, err = f.Forecast(context.Background(), Request{Constituency: "Puri"})
	require.NoError(t, err)
	assert.False(t, view.PriorFromRecord)
	assert.Equal(t, models.PriorBelief{AlphaPrior: 6001, BetaPrior: 4001}, view.Prior)
}

func TestForecastMissingConstituency(t *testing.T) {
	f := newForecaster(t, testConfig(t))

	_, err := f.Forecast(context.Background(), Request{Constituency: "Atlantis"})
	var missing *models.MissingConstituencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Atlantis", missing.Constituency)
}

func TestValidateRequest(t *testing.T) {
	f := newForecaster(t, testConfig(t))

	tests := []struct {
		name  string
		req   Request
		field string
		value int
	}{
		{"survey above max", Request{Survey: &models.SurveyObservation{SurveyLead: 1001}}, "survey_lead", 1001},
		{"negative trail", Request{Survey: &models.SurveyObservation{SurveyTrail: -1}}, "survey_trail", -1},
		{"too few simulations", Request{Simulations: intPtr(999)}, "simulations", 999},
		{"too many simulations", Request{Simulations: intPtr(50001)}, "simulations", 50001},
		{"off step", Request{Simulations: intPtr(1500)}, "simulations", 1500},
		{"ok", Request{Survey: &models.SurveyObservation{SurveyLead: 1000}, Simulations: intPtr(2000)}, "", 0},
		{"defaults", Request{}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateRequest(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var rangeErr *OutOfRangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tt.field, rangeErr.Field)
			assert.Equal(t, tt.value, rangeErr.Value)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestForecastExplicitSimulationCount(t *testing.T) {
	f := newForecaster(t, testConfig(t))
	survey := models.SurveyObservation{SurveyLead: 58, SurveyTrail: 42}

	tests := []struct {
		name  string
		count int
	}{
		{"zero", 0},
		{"negative", -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.Forecast(context.Background(), Request{Constituency: "Varanasi", Survey: &survey, Simulations: intPtr(tt.count), Seed: 3})
			assert.Nil(t, view)
			var countErr *models.InvalidSimulationCountError
			require.True(t, errors.As(err, &countErr))
			assert.Equal(t, tt.count, countErr.Count)
		})
	}

	view, err := f.Forecast(context.Background(), Request{Constituency: "Varanasi", Survey: &survey, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, 10000, view.Result.Simulations, "unset count uses the configured default")
}

func TestForecastCache(t *testing.T) {
	f := newForecaster(t, testConfig(t))
	ctx := context.Background()

	first, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	require.NoError(t, err)
	second, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.len())

	third, err := f.Forecast(ctx, Request{Constituency: "Puri", Simulations: intPtr(2000)})
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	// reloading the dataset drops cached views
	require.NoError(t, f.Load(ctx, stringLoader{body: sampleCSV}, "memory"))
	assert.Equal(t, 0, f.cache.len())
}

func TestForecastCacheIsolatesCallers(t *testing.T) {
	f := newForecaster(t, testConfig(t))
	ctx := context.Background()

	first, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	require.NoError(t, err)
	wantLead := first.Result.ProbLead
	wantX := first.Curve.X[1]

	first.Result.ProbLead = 0.123
	first.Curve.X[1] = 42
	first.Share.ProbLead = 0.123

	second, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	require.NoError(t, err)
	assert.Equal(t, wantLead, second.Result.ProbLead)
	assert.InDelta(t, 1.0, second.Result.ProbLead+second.Result.ProbTrail, 1e-12)
	assert.Equal(t, wantX, second.Curve.X[1])
	assert.Equal(t, wantLead, second.Share.ProbLead)

	second.Result.ProbTrail = 0
	third, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, third.Result.ProbLead+third.Result.ProbTrail, 1e-12)
}

func TestForecastCacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	f := newForecaster(t, cfg)

	first, err := f.Forecast(context.Background(), Request{Constituency: "Puri"})
	require.NoError(t, err)
	second, err := f.Forecast(context.Background(), Request{Constituency: "Puri"})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Result.ProbLead, second.Result.ProbLead, "seeded engine is reproducible")
}

func TestForecastRequestSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	f := newForecaster(t, cfg)

	a, err := f.Forecast(context.Background(), Request{Constituency: "Puri", Seed: 99})
	require.NoError(t, err)
	b, err := f.Forecast(context.Background(), Request{Constituency: "Puri", Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, a.Result.ProbLead, b.Result.ProbLead)
}

func TestForecastCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	f := newForecaster(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Forecast(ctx, Request{Constituency: "Puri"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadError(t *testing.T) {
	cfg := testConfig(t)
	f, err := New(storage.New(0), cfg)
	require.NoError(t, err)

	err = f.Load(context.Background(), stringLoader{err: errors.New("offline")}, "http://example.invalid")
	assert.ErrorContains(t, err, "offline")
	assert.Empty(t, f.Constituencies())

	err = f.Load(context.Background(), stringLoader{body: "Constituency\nX\n"}, "bad.csv")
	assert.True(t, errors.Is(err, dataset.ErrMissingColumn))
}

func TestRank(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forecast.PriorLeadVotes, cfg.Forecast.PriorTrailVotes = 0, 0
	f := newForecaster(t, cfg)

	races, raceErrors, err := f.Rank(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, raceErrors)
	require.Len(t, races, 2)
	assert.Equal(t, "Amethi", races[0].Constituency, "an even survey over a flat prior is a toss-up")
	assert.LessOrEqual(t, races[0].Closeness, races[1].Closeness)

	all, _, err := f.Rank(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestConstituenciesAndMap(t *testing.T) {
	f := newForecaster(t, testConfig(t))

	assert.Equal(t, []string{"Varanasi", "Amethi", "Puri"}, f.Constituencies())
	assert.Equal(t, []string{"Amethi"}, f.Search("ame"))

	points := f.MapPoints()
	require.Len(t, points, 3)
	for _, p := range points {
		assert.True(t, p.Synthetic)
	}
	assert.Equal(t, points, f.MapPoints())
}
