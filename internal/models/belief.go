package models

import "math"

// PriorBelief holds Beta pseudo-counts accumulated from historical evidence for the
// leading (alpha) and trailing (beta) outcomes.
type PriorBelief struct {
	AlphaPrior float64 `json:"alpha_prior" yaml:"alpha_prior"`
	BetaPrior  float64 `json:"beta_prior" yaml:"beta_prior"`
}

// Validate rejects pseudo-counts that are not finite and strictly positive.
func (p PriorBelief) Validate() error {
	if !positiveFinite(p.AlphaPrior) || !positiveFinite(p.BetaPrior) {
		return &InvalidPriorError{AlphaPrior: p.AlphaPrior, BetaPrior: p.BetaPrior}
	}
	return nil
}

// SurveyObservation holds newly collected support counts for each side.
type SurveyObservation struct {
	SurveyLead  int `json:"survey_lead" yaml:"survey_lead"`
	SurveyTrail int `json:"survey_trail" yaml:"survey_trail"`
}

// Validate rejects negative counts.
func (s SurveyObservation) Validate() error {
	if s.SurveyLead < 0 || s.SurveyTrail < 0 {
		return &InvalidSurveyError{SurveyLead: s.SurveyLead, SurveyTrail: s.SurveyTrail}
	}
	return nil
}

// Total returns the number of respondents.
func (s SurveyObservation) Total() int {
	return s.SurveyLead + s.SurveyTrail
}

// PosteriorBelief is the Beta distribution over the leading candidate's true vote
// share after combining a prior with a survey. Build it with forecast.ComputePosterior.
type PosteriorBelief struct {
	AlphaPost float64 `json:"alpha_post" yaml:"alpha_post"`
	BetaPost  float64 `json:"beta_post" yaml:"beta_post"`
}

// Validate checks both shape parameters are finite and positive.
func (p PosteriorBelief) Validate() error {
	if !positiveFinite(p.AlphaPost) || !positiveFinite(p.BetaPost) {
		return &InvalidPriorError{AlphaPrior: p.AlphaPost, BetaPrior: p.BetaPost}
	}
	return nil
}

// Mean returns alpha / (alpha + beta).
func (p PosteriorBelief) Mean() float64 {
	return p.AlphaPost / (p.AlphaPost + p.BetaPost)
}

// Variance returns the Beta variance alpha*beta / ((alpha+beta)^2 (alpha+beta+1)).
func (p PosteriorBelief) Variance() float64 {
	s := p.AlphaPost + p.BetaPost
	return p.AlphaPost * p.BetaPost / (s * s * (s + 1))
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
