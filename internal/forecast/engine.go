// Package forecast implements the Beta-Binomial forecasting engine.
//
// A race is modelled as a Beta distribution over the leading candidate's vote share.
// Historical votes give the prior pseudo-counts, survey counts are added to obtain the
// posterior, and the win probability is the posterior mass above 0.5:
//
//	alpha_post = alpha_prior + survey_lead
//	beta_post  = beta_prior  + survey_trail
//	P(lead)    = P(X > 0.5), X ~ Beta(alpha_post, beta_post)
//
// Simulate estimates P(lead) by Monte Carlo; WinProbability evaluates it exactly.
// Every function is a pure function of its inputs, so independent calls can run
// concurrently without coordination.
package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rewired-gh/electcast/internal/models"
)

// DefaultMaxSimulations caps a single Simulate call.
const DefaultMaxSimulations = 1_000_000

// cancelCheckInterval is how many draws are made between context checks.
const cancelCheckInterval = 4096

// pcgStream decorrelates the second PCG word from the seed.
const pcgStream = 0x9e3779b97f4a7c15

// Engine draws Monte Carlo samples from posterior distributions.
// It holds configuration only; each call builds its own random source.
type Engine struct {
	maxSimulations int
	newSource      func() rand.Source
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSimulations sets the per-call simulation cap. Values <= 0 disable the cap.
func WithMaxSimulations(n int) Option {
	return func(e *Engine) {
		e.maxSimulations = n
	}
}

// WithSeed makes every Simulate call draw the same sequence.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.newSource = func() rand.Source {
			return rand.NewPCG(seed, seed^pcgStream)
		}
	}
}

// WithSourceFunc sets the factory used to create a random source per call.
func WithSourceFunc(f func() rand.Source) Option {
	return func(e *Engine) {
		e.newSource = f
	}
}

// NewEngine creates an Engine seeded from the runtime unless an option overrides it.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxSimulations: DefaultMaxSimulations,
		newSource: func() rand.Source {
			return rand.NewPCG(rand.Uint64(), rand.Uint64())
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSimulations returns the configured cap (0 when disabled).
func (e *Engine) MaxSimulations() int {
	if e.maxSimulations < 0 {
		return 0
	}
	return e.maxSimulations
}

// ComputePosterior adds the survey counts to the prior pseudo-counts.
// The result is exact; no randomness is involved.
func ComputePosterior(prior models.PriorBelief, survey models.SurveyObservation) (models.PosteriorBelief, error) {
	if err := prior.Validate(); err != nil {
		return models.PosteriorBelief{}, err
	}
	if err := survey.Validate(); err != nil {
		return models.PosteriorBelief{}, err
	}
	return models.PosteriorBelief{
		AlphaPost: prior.AlphaPrior + float64(survey.SurveyLead),
		BetaPost:  prior.BetaPrior + float64(survey.SurveyTrail),
	}, nil
}

// Simulate draws nSimulations samples from Beta(alpha_post, beta_post) and reports the
// fraction strictly above models.WinThreshold as the leading candidate's win probability.
func (e *Engine) Simulate(ctx context.Context, posterior models.PosteriorBelief, nSimulations int) (*models.ForecastResult, error) {
	return e.SimulateWithSource(ctx, posterior, nSimulations, e.newSource())
}

// SimulateWithSource is Simulate with an explicit random source. The source is not
// safe for concurrent use, so callers must not share it between goroutines.
func (e *Engine) SimulateWithSource(ctx context.Context, posterior models.PosteriorBelief, nSimulations int, src rand.Source) (*models.ForecastResult, error) {
	if nSimulations <= 0 {
		return nil, &models.InvalidSimulationCountError{Count: nSimulations, Max: e.MaxSimulations()}
	}
	if limit := e.MaxSimulations(); limit > 0 && nSimulations > limit {
		return nil, &models.InvalidSimulationCountError{Count: nSimulations, Max: limit}
	}
	if err := posterior.Validate(); err != nil {
		return nil, err
	}

	dist := distuv.Beta{Alpha: posterior.AlphaPost, Beta: posterior.BetaPost, Src: src}
	samples := make([]float64, nSimulations)
	wins := 0
	for i := range samples {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		x := dist.Rand()
		samples[i] = x
		if x > models.WinThreshold {
			wins++
		}
	}

	probLead := float64(wins) / float64(nSimulations)
	return &models.ForecastResult{
		ID:            uuid.New().String(),
		Posterior:     posterior,
		Simulations:   nSimulations,
		ProbLead:      probLead,
		ProbTrail:     1 - probLead,
		StandardError: math.Sqrt(probLead * (1 - probLead) / float64(nSimulations)),
		Samples:       samples,
		GeneratedAt:   e.now(),
	}, nil
}

// PosteriorDensity evaluates the closed-form Beta density at each x.
// Points outside [0, 1] lie outside the support and get density 0.
func PosteriorDensity(posterior models.PosteriorBelief, xValues []float64) ([]float64, error) {
	if err := posterior.Validate(); err != nil {
		return nil, err
	}
	dist := distuv.Beta{Alpha: posterior.AlphaPost, Beta: posterior.BetaPost}
	density := make([]float64, len(xValues))
	for i, x := range xValues {
		density[i] = dist.Prob(x)
	}
	return density, nil
}

// WinProbability returns the exact posterior mass above models.WinThreshold,
// 1 - BetaCDF(0.5; alpha_post, beta_post). Simulate converges to this value.
func WinProbability(posterior models.PosteriorBelief) (float64, error) {
	if err := posterior.Validate(); err != nil {
		return 0, err
	}
	dist := distuv.Beta{Alpha: posterior.AlphaPost, Beta: posterior.BetaPost}
	return 1 - dist.CDF(models.WinThreshold), nil
}

// CredibleInterval returns the central interval holding level of the posterior mass.
func CredibleInterval(posterior models.PosteriorBelief, level float64) (float64, float64, error) {
	if err := posterior.Validate(); err != nil {
		return 0, 0, err
	}
	if level <= 0 || level >= 1 {
		return 0, 0, fmt.Errorf("credible level %g must be in (0, 1)", level)
	}
	dist := distuv.Beta{Alpha: posterior.AlphaPost, Beta: posterior.BetaPost}
	tail := (1 - level) / 2
	return dist.Quantile(tail), dist.Quantile(1 - tail), nil
}

// Linspace returns n evenly spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	xs := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range xs {
		xs[i] = lo + float64(i)*step
	}
	xs[n-1] = hi
	return xs
}
