// Package ranking forecasts every constituency in a dataset and orders the races by
// how close they are.
//
// Each race gets an independent Monte Carlo run. Two quantities drive the ranking:
//
//	closeness    = |P(lead) - 0.5|
//	survey_shift = KL(posterior_mean || prior_mean)
//
// Closeness puts toss-ups first. Survey shift measures how much information the
// survey carried relative to the prior, and breaks ties between equally close races.
package ranking

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/electcast/internal/forecast"
	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/models"
)

// probEpsilon clamps probabilities away from 0 and 1 to prevent ln(0) in KL divergence.
const probEpsilon = 1e-7

// Plan describes how a sweep forecasts each record.
type Plan struct {
	Engine        *forecast.Engine
	PriorMode     forecast.PriorMode
	FixedPrior    models.PriorBelief
	PriorWeight   float64
	DefaultSurvey models.SurveyObservation
	Simulations   int
	Workers       int
	// Seed, when non-zero, gives each record its own reproducible stream derived
	// from Seed and the constituency name. Zero draws from Engine as is.
	Seed uint64
}

// Race is the forecast summary for one constituency.
type Race struct {
	Constituency     string                   `json:"constituency" yaml:"constituency"`
	Leading          string                   `json:"leading" yaml:"leading"`
	Trailing         string                   `json:"trailing" yaml:"trailing"`
	Prior            models.PriorBelief       `json:"prior" yaml:"prior"`
	PriorFromRecord  bool                     `json:"prior_from_record" yaml:"prior_from_record"`
	Survey           models.SurveyObservation `json:"survey" yaml:"survey"`
	SurveyFromRecord bool                     `json:"survey_from_record" yaml:"survey_from_record"`
	Posterior        models.PosteriorBelief   `json:"posterior" yaml:"posterior"`
	ProbLead         float64                  `json:"prob_lead" yaml:"prob_lead"`
	AnalyticProbLead float64                  `json:"analytic_prob_lead" yaml:"analytic_prob_lead"`
	StandardError    float64                  `json:"standard_error" yaml:"standard_error"`
	Closeness        float64                  `json:"closeness" yaml:"closeness"`
	SurveyShift      float64                  `json:"survey_shift" yaml:"survey_shift"`
}

// RaceError represents a per-constituency error during a sweep
type RaceError struct {
	Constituency string
	Err          error
}

func (e RaceError) Error() string {
	return fmt.Sprintf("forecast error for constituency %s: %v", e.Constituency, e.Err)
}

func (e RaceError) Unwrap() error {
	return e.Err
}

// Sweep forecasts every record with at most plan.Workers concurrent engine calls.
// Races come back in record order. Per-record failures are returned as RaceErrors
// and do not stop the sweep; only cancellation of ctx does.
func Sweep(ctx context.Context, records []models.ConstituencyRecord, plan Plan) ([]Race, []RaceError, error) {
	if plan.Engine == nil {
		return nil, nil, fmt.Errorf("sweep requires an engine")
	}
	if plan.Simulations <= 0 {
		return nil, nil, &models.InvalidSimulationCountError{Count: plan.Simulations}
	}
	workers := plan.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	races := make([]*Race, len(records))
	failures := make([]error, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		record := records[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			race, err := forecastRace(gctx, &record, plan)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[i] = err
				return nil
			}
			races[i] = race
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("sweep cancelled: %w", err)
	}

	result := make([]Race, 0, len(records))
	var raceErrors []RaceError
	for i, r := range races {
		if failures[i] != nil {
			raceErrors = append(raceErrors, RaceError{Constituency: records[i].Constituency, Err: failures[i]})
			continue
		}
		result = append(result, *r)
	}

	logger.Debug("Sweep: records=%d, forecast=%d, failed=%d, workers=%d, simulations=%d, took=%v",
		len(records), len(result), len(raceErrors), workers, plan.Simulations, time.Since(start))

	return result, raceErrors, nil
}

func forecastRace(ctx context.Context, record *models.ConstituencyRecord, plan Plan) (*Race, error) {
	prior, fromRecord := forecast.SelectPrior(plan.PriorMode, record, plan.FixedPrior, plan.PriorWeight)

	survey := plan.DefaultSurvey
	surveyFromRecord := false
	if record.HasSurvey {
		survey = models.SurveyObservation{SurveyLead: record.SurveyLead, SurveyTrail: record.SurveyTrail}
		surveyFromRecord = true
	}

	posterior, err := forecast.ComputePosterior(prior, survey)
	if err != nil {
		return nil, err
	}
	engine := plan.Engine
	if plan.Seed != 0 {
		engine = forecast.NewEngine(
			forecast.WithSeed(raceSeed(plan.Seed, record.Constituency)),
			forecast.WithMaxSimulations(plan.Engine.MaxSimulations()),
		)
	}
	result, err := engine.Simulate(ctx, posterior, plan.Simulations)
	if err != nil {
		return nil, err
	}
	analytic, err := forecast.WinProbability(posterior)
	if err != nil {
		return nil, err
	}

	priorMean := prior.AlphaPrior / (prior.AlphaPrior + prior.BetaPrior)

	return &Race{
		Constituency:     record.Constituency,
		Leading:          record.LeadingLabel(),
		Trailing:         record.TrailingLabel(),
		Prior:            prior,
		PriorFromRecord:  fromRecord,
		Survey:           survey,
		SurveyFromRecord: surveyFromRecord,
		Posterior:        posterior,
		ProbLead:         result.ProbLead,
		AnalyticProbLead: analytic,
		StandardError:    result.StandardError,
		Closeness:        Closeness(result.ProbLead),
		SurveyShift:      KLDivergence(priorMean, posterior.Mean()),
	}, nil
}

// raceSeed mixes a sweep seed with a constituency name so that races in one sweep
// never share a random stream.
func raceSeed(seed uint64, constituency string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(binary.BigEndian.AppendUint64(nil, seed))
	_, _ = h.Write([]byte(constituency))
	return h.Sum64()
}

// Closeness is the distance of a win probability from a coin flip.
func Closeness(probLead float64) float64 {
	return math.Abs(probLead - models.WinThreshold)
}

// KLDivergence computes KL(pNew || pOld) for a two-outcome distribution.
// Both probabilities are clamped to [1e-7, 1-1e-7] to avoid ln(0).
// Returns the information gain (in nats) of updating from pOld to pNew.
func KLDivergence(pOld, pNew float64) float64 {
	pOld = math.Max(probEpsilon, math.Min(1-probEpsilon, pOld))
	pNew = math.Max(probEpsilon, math.Min(1-probEpsilon, pNew))
	return pNew*math.Log(pNew/pOld) + (1-pNew)*math.Log((1-pNew)/(1-pOld))
}

// Rank returns at most k races, closest first. Ties are broken by larger SurveyShift,
// then by constituency name ascending. The input is not modified. Returns an empty
// (non-nil) slice when k <= 0 or there is nothing to rank.
func Rank(races []Race, k int) []Race {
	if k <= 0 || len(races) == 0 {
		return []Race{}
	}

	sorted := make([]Race, len(races))
	copy(sorted, races)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Closeness != sorted[j].Closeness {
			return sorted[i].Closeness < sorted[j].Closeness
		}
		if sorted[i].SurveyShift != sorted[j].SurveyShift {
			return sorted[i].SurveyShift > sorted[j].SurveyShift
		}
		return strings.ToLower(sorted[i].Constituency) < strings.ToLower(sorted[j].Constituency)
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
