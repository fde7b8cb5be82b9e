// Package presenter turns forecasts into chart-ready data for any front end.
// It produces numbers only; rendering belongs to whoever consumes the payloads.
package presenter

import (
	"fmt"
	"math"
	"slices"

	"github.com/rewired-gh/electcast/internal/forecast"
	"github.com/rewired-gh/electcast/internal/models"
)

// CredibleLevel is the mass of the reported credible interval.
const CredibleLevel = 0.95

// ShareChart feeds the win-probability pie.
type ShareChart struct {
	LeadingLabel  string  `json:"leading_label" yaml:"leading_label"`
	TrailingLabel string  `json:"trailing_label" yaml:"trailing_label"`
	ProbLead      float64 `json:"prob_lead" yaml:"prob_lead"`
	ProbTrail     float64 `json:"prob_trail" yaml:"prob_trail"`
}

// ComparisonChart feeds the survey bar chart.
type ComparisonChart struct {
	LeadingLabel  string `json:"leading_label" yaml:"leading_label"`
	TrailingLabel string `json:"trailing_label" yaml:"trailing_label"`
	SurveyLead    int    `json:"survey_lead" yaml:"survey_lead"`
	SurveyTrail   int    `json:"survey_trail" yaml:"survey_trail"`
}

// PosteriorCurve feeds the density plot with a vertical line at ThresholdX.
type PosteriorCurve struct {
	X          []float64 `json:"x" yaml:"x"`
	Density    []float64 `json:"density" yaml:"density"`
	ThresholdX float64   `json:"threshold_x" yaml:"threshold_x"`
}

// RecordSummary is the "past election result" panel.
type RecordSummary struct {
	Constituency string                       `json:"constituency" yaml:"constituency"`
	Leading      string                       `json:"leading" yaml:"leading"`
	Trailing     string                       `json:"trailing" yaml:"trailing"`
	Margin       string                       `json:"margin" yaml:"margin"`
	Warnings     []models.MissingFieldWarning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// View is everything one forecast screen shows.
type View struct {
	Summary          RecordSummary            `json:"summary" yaml:"summary"`
	Prior            models.PriorBelief       `json:"prior" yaml:"prior"`
	PriorFromRecord  bool                     `json:"prior_from_record" yaml:"prior_from_record"`
	Survey           models.SurveyObservation `json:"survey" yaml:"survey"`
	Result           *models.ForecastResult   `json:"result" yaml:"result"`
	AnalyticProbLead float64                  `json:"analytic_prob_lead" yaml:"analytic_prob_lead"`
	CredibleLow      float64                  `json:"credible_low" yaml:"credible_low"`
	CredibleHigh     float64                  `json:"credible_high" yaml:"credible_high"`
	Share            ShareChart               `json:"share" yaml:"share"`
	Comparison       ComparisonChart          `json:"comparison" yaml:"comparison"`
	Curve            PosteriorCurve           `json:"curve" yaml:"curve"`
}

// Clone returns a deep copy of v. Changes to the copy never reach v.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	out := *v
	out.Summary.Warnings = slices.Clone(v.Summary.Warnings)
	out.Curve.X = slices.Clone(v.Curve.X)
	out.Curve.Density = slices.Clone(v.Curve.Density)
	if v.Result != nil {
		result := *v.Result
		result.Samples = slices.Clone(v.Result.Samples)
		out.Result = &result
	}
	return &out
}

// Input bundles what Build needs.
type Input struct {
	Record          models.ConstituencyRecord
	Prior           models.PriorBelief
	PriorFromRecord bool
	Survey          models.SurveyObservation
	Result          *models.ForecastResult
	CurvePoints     int
	Warnings        []models.MissingFieldWarning
}

// Build assembles a View. The curve is the exact density, not a histogram of samples.
func Build(in Input) (*View, error) {
	if in.Result == nil {
		return nil, fmt.Errorf("forecast result is required")
	}
	posterior := in.Result.Posterior

	curve, err := NewPosteriorCurve(posterior, in.CurvePoints)
	if err != nil {
		return nil, err
	}
	analytic, err := forecast.WinProbability(posterior)
	if err != nil {
		return nil, err
	}
	lo, hi, err := forecast.CredibleInterval(posterior, CredibleLevel)
	if err != nil {
		return nil, err
	}

	return &View{
		Summary:          NewRecordSummary(in.Record, in.Warnings),
		Prior:            in.Prior,
		PriorFromRecord:  in.PriorFromRecord,
		Survey:           in.Survey,
		Result:           in.Result,
		AnalyticProbLead: analytic,
		CredibleLow:      lo,
		CredibleHigh:     hi,
		Share:            NewShareChart(in.Record, in.Result),
		Comparison:       NewComparisonChart(in.Record, in.Survey),
		Curve:            *curve,
	}, nil
}

// NewRecordSummary formats a record, substituting "N/A" for a missing margin.
func NewRecordSummary(record models.ConstituencyRecord, warnings []models.MissingFieldWarning) RecordSummary {
	return RecordSummary{
		Constituency: record.Constituency,
		Leading:      record.LeadingLabel(),
		Trailing:     record.TrailingLabel(),
		Margin:       record.MarginText(),
		Warnings:     warnings,
	}
}

// NewShareChart pairs candidate names with the forecast probabilities.
func NewShareChart(record models.ConstituencyRecord, result *models.ForecastResult) ShareChart {
	return ShareChart{
		LeadingLabel:  record.LeadingCandidate,
		TrailingLabel: record.TrailingCandidate,
		ProbLead:      result.ProbLead,
		ProbTrail:     result.ProbTrail,
	}
}

// NewComparisonChart pairs candidate names with the survey counts.
func NewComparisonChart(record models.ConstituencyRecord, survey models.SurveyObservation) ComparisonChart {
	return ComparisonChart{
		LeadingLabel:  record.LeadingCandidate,
		TrailingLabel: record.TrailingCandidate,
		SurveyLead:    survey.SurveyLead,
		SurveyTrail:   survey.SurveyTrail,
	}
}

// NewPosteriorCurve evaluates the posterior density on points evenly spaced over [0, 1].
func NewPosteriorCurve(posterior models.PosteriorBelief, points int) (*PosteriorCurve, error) {
	if points < 2 {
		return nil, fmt.Errorf("curve needs at least 2 points, got %d", points)
	}
	xs := forecast.Linspace(0, 1, points)
	density, err := forecast.PosteriorDensity(posterior, xs)
	if err != nil {
		return nil, err
	}
	// A shape parameter below 1 puts a pole at 0 or 1; JSON cannot carry +Inf.
	for i, d := range density {
		if math.IsInf(d, 0) || math.IsNaN(d) {
			density[i] = 0
		}
	}
	return &PosteriorCurve{X: xs, Density: density, ThresholdX: models.WinThreshold}, nil
}
