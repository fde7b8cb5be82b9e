package models

import (
	"errors"
	"math"
	"time"
)

// WinThreshold is the vote share above which a sampled proportion counts as a win
// for the leading candidate.
const WinThreshold = 0.5

// ForecastResult is a Monte Carlo estimate of the win probability for one posterior.
// Results are rebuilt from inputs on every change and never mutated afterwards.
type ForecastResult struct {
	ID            string          `json:"id" yaml:"id"`
	Posterior     PosteriorBelief `json:"posterior" yaml:"posterior"`
	Simulations   int             `json:"simulations" yaml:"simulations"`
	ProbLead      float64         `json:"prob_lead" yaml:"prob_lead"`
	ProbTrail     float64         `json:"prob_trail" yaml:"prob_trail"`
	StandardError float64         `json:"standard_error" yaml:"standard_error"` // sqrt(p(1-p)/n)
	Samples       []float64       `json:"-" yaml:"-"`
	GeneratedAt   time.Time       `json:"generated_at" yaml:"generated_at"`
}

// Validate checks the probabilities are complementary and consistent with the samples.
func (f *ForecastResult) Validate() error {
	if f.ID == "" {
		return errors.New("forecast ID must not be empty")
	}
	if f.Simulations <= 0 {
		return errors.New("simulations must be positive")
	}
	if f.ProbLead < 0.0 || f.ProbLead > 1.0 {
		return errors.New("lead probability must be between 0.0 and 1.0")
	}
	if f.ProbTrail < 0.0 || f.ProbTrail > 1.0 {
		return errors.New("trail probability must be between 0.0 and 1.0")
	}
	if math.Abs(f.ProbLead+f.ProbTrail-1.0) > 1e-12 {
		return errors.New("lead + trail probability must equal 1.0")
	}
	if f.Samples != nil && len(f.Samples) != f.Simulations {
		return errors.New("sample count must equal simulations")
	}
	if f.GeneratedAt.After(time.Now()) {
		return errors.New("generated at must not be in the future")
	}
	return nil
}
