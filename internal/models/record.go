// Package models defines the core domain entities for electcast.
// These models represent a constituency's historical result, the Beta pseudo-counts
// before and after a survey, and the forecast derived from them.
//
// Terminology:
//   - Leading/trailing: the first and second placed candidates of the previous result.
//   - Prior: Beta pseudo-counts built from historical votes (votes + 1).
//   - Posterior: prior pseudo-counts plus newly observed survey counts.
package models

import (
	"errors"
	"strings"
)

// NotAvailable is shown in place of optional display fields that are absent.
const NotAvailable = "N/A"

// ConstituencyRecord is one row of a historical election result table.
// Records are immutable once loaded; a new upload replaces the whole set.
type ConstituencyRecord struct {
	Constituency      string `json:"constituency" yaml:"constituency"`
	LeadingCandidate  string `json:"leading_candidate" yaml:"leading_candidate"`
	LeadingParty      string `json:"leading_party" yaml:"leading_party"`
	TrailingCandidate string `json:"trailing_candidate" yaml:"trailing_candidate"`
	TrailingParty     string `json:"trailing_party" yaml:"trailing_party"`
	Margin            string `json:"margin,omitempty" yaml:"margin,omitempty"` // Free text, e.g. "181300 (Won)"
	HasMargin         bool   `json:"has_margin" yaml:"has_margin"`

	// Historical vote counts. Only consulted when the prior is derived from records.
	LeadingVotes  int  `json:"leading_votes,omitempty" yaml:"leading_votes,omitempty"`
	TrailingVotes int  `json:"trailing_votes,omitempty" yaml:"trailing_votes,omitempty"`
	HasVotes      bool `json:"has_votes" yaml:"has_votes"`

	// Per-constituency survey counts, used by sweeps when present.
	SurveyLead  int  `json:"survey_lead,omitempty" yaml:"survey_lead,omitempty"`
	SurveyTrail int  `json:"survey_trail,omitempty" yaml:"survey_trail,omitempty"`
	HasSurvey   bool `json:"has_survey" yaml:"has_survey"`
}

// Validate checks that the required record fields are present.
func (r *ConstituencyRecord) Validate() error {
	if strings.TrimSpace(r.Constituency) == "" {
		return errors.New("constituency must not be empty")
	}
	if r.LeadingCandidate == "" {
		return errors.New("leading candidate must not be empty")
	}
	if r.TrailingCandidate == "" {
		return errors.New("trailing candidate must not be empty")
	}
	if r.HasVotes && (r.LeadingVotes < 0 || r.TrailingVotes < 0) {
		return errors.New("historical votes must not be negative")
	}
	if r.HasSurvey && (r.SurveyLead < 0 || r.SurveyTrail < 0) {
		return errors.New("survey counts must not be negative")
	}
	return nil
}

// MarginText returns the margin, or NotAvailable when the field is absent.
func (r *ConstituencyRecord) MarginText() string {
	if !r.HasMargin || strings.TrimSpace(r.Margin) == "" {
		return NotAvailable
	}
	return r.Margin
}

// LeadingLabel returns "Candidate (Party)" for the leading side.
func (r *ConstituencyRecord) LeadingLabel() string {
	return label(r.LeadingCandidate, r.LeadingParty)
}

// TrailingLabel returns "Candidate (Party)" for the trailing side.
func (r *ConstituencyRecord) TrailingLabel() string {
	return label(r.TrailingCandidate, r.TrailingParty)
}

func label(candidate, party string) string {
	if party == "" {
		return candidate
	}
	return candidate + " (" + party + ")"
}
