package forecast

import (
	"fmt"

	"github.com/rewired-gh/electcast/internal/models"
)

// PriorMode selects where prior pseudo-counts come from.
type PriorMode string

const (
	// PriorModeFixed uses one configured prior for every constituency.
	PriorModeFixed PriorMode = "fixed"
	// PriorModeRecord derives the prior from a record's historical votes and falls
	// back to the fixed prior when the record has none.
	PriorModeRecord PriorMode = "record"
)

// ParsePriorMode validates a mode string.
func ParsePriorMode(s string) (PriorMode, error) {
	switch PriorMode(s) {
	case PriorModeFixed, PriorModeRecord:
		return PriorMode(s), nil
	default:
		return "", fmt.Errorf("unknown prior mode %q: must be %q or %q", s, PriorModeFixed, PriorModeRecord)
	}
}

// LaplacePrior turns historical vote counts into Beta pseudo-counts (votes + 1).
func LaplacePrior(leadVotes, trailVotes float64) models.PriorBelief {
	return models.PriorBelief{
		AlphaPrior: leadVotes + 1,
		BetaPrior:  trailVotes + 1,
	}
}

// DefaultPrior is the illustrative 6000/4000 historical split.
func DefaultPrior() models.PriorBelief {
	return LaplacePrior(6000, 4000)
}

// PriorFromRecord returns weight*votes + 1 when the record carries historical votes,
// and fallback otherwise. The boolean reports whether the record was used.
// weight in (0, 1] discounts old results against the new survey.
func PriorFromRecord(record *models.ConstituencyRecord, fallback models.PriorBelief, weight float64) (models.PriorBelief, bool) {
	if record == nil || !record.HasVotes || record.LeadingVotes < 0 || record.TrailingVotes < 0 {
		return fallback, false
	}
	if weight <= 0 || weight > 1 {
		weight = 1
	}
	return LaplacePrior(weight*float64(record.LeadingVotes), weight*float64(record.TrailingVotes)), true
}

// SelectPrior applies mode to a record.
func SelectPrior(mode PriorMode, record *models.ConstituencyRecord, fixed models.PriorBelief, weight float64) (models.PriorBelief, bool) {
	if mode == PriorModeRecord {
		return PriorFromRecord(record, fixed, weight)
	}
	return fixed, false
}
