package models

import "fmt"

// InvalidPriorError reports prior pseudo-counts that do not define a Beta distribution.
type InvalidPriorError struct {
	AlphaPrior float64
	BetaPrior  float64
}

func (e *InvalidPriorError) Error() string {
	return fmt.Sprintf("invalid prior: alpha_prior=%g, beta_prior=%g (both must be finite and > 0)", e.AlphaPrior, e.BetaPrior)
}

// InvalidSurveyError reports negative survey counts.
type InvalidSurveyError struct {
	SurveyLead  int
	SurveyTrail int
}

func (e *InvalidSurveyError) Error() string {
	return fmt.Sprintf("invalid survey: survey_lead=%d, survey_trail=%d (both must be >= 0)", e.SurveyLead, e.SurveyTrail)
}

// InvalidSimulationCountError reports a simulation count that is not positive,
// or one above the configured cap when Max is set.
type InvalidSimulationCountError struct {
	Count int
	Max   int
}

func (e *InvalidSimulationCountError) Error() string {
	if e.Max > 0 && e.Count > e.Max {
		return fmt.Sprintf("invalid simulation count %d: must not exceed %d", e.Count, e.Max)
	}
	return fmt.Sprintf("invalid simulation count %d: must be positive", e.Count)
}

// MissingConstituencyError is returned when a key is not in the loaded record set.
type MissingConstituencyError struct {
	Constituency string
}

func (e *MissingConstituencyError) Error() string {
	return fmt.Sprintf("constituency not found: %q", e.Constituency)
}

// MissingFieldWarning describes an optional field that is absent or unreadable.
// It is never fatal; loaders accumulate these and keep going.
type MissingFieldWarning struct {
	Field        string `json:"field" yaml:"field"`
	Constituency string `json:"constituency,omitempty" yaml:"constituency,omitempty"` // Empty for dataset-wide warnings
	Row          int    `json:"row,omitempty" yaml:"row,omitempty"`                   // 1-based data row, 0 for dataset-wide
	Reason       string `json:"reason" yaml:"reason"`
}

func (w MissingFieldWarning) Error() string {
	switch {
	case w.Constituency != "":
		return fmt.Sprintf("%s: field %q %s", w.Constituency, w.Field, w.Reason)
	case w.Row > 0:
		return fmt.Sprintf("row %d: field %q %s", w.Row, w.Field, w.Reason)
	default:
		return fmt.Sprintf("field %q %s", w.Field, w.Reason)
	}
}
