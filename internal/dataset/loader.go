// Package dataset parses historical election results from CSV into constituency records.
//
// Header names are trimmed before lookup, so " Leading Party " matches "Leading Party".
// Required columns must be present; optional columns (margin, coordinates, historical
// votes, survey counts) degrade to warnings when missing or unreadable.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rewired-gh/electcast/internal/models"
)

// Column names as they appear in the source table.
const (
	ColConstituency      = "Constituency"
	ColLeadingCandidate  = "Leading Candidate"
	ColLeadingParty      = "Leading Party"
	ColTrailingCandidate = "Trailing Candidate"
	ColTrailingParty     = "Trailing Party"
	ColMargin            = "Margin"
	ColLatitude          = "Latitude"
	ColLongitude         = "Longitude"
	ColLeadingVotes      = "Leading Votes"
	ColTrailingVotes     = "Trailing Votes"
	ColSurveyLead        = "Survey Lead"
	ColSurveyTrail       = "Survey Trail"
)

// RequiredColumns must all be present in the header.
var RequiredColumns = []string{
	ColConstituency,
	ColLeadingCandidate,
	ColLeadingParty,
	ColTrailingCandidate,
	ColTrailingParty,
}

// Location is a display coordinate read from the file. It never enters the models.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Dataset is the parsed content of one uploaded table.
type Dataset struct {
	Records   []models.ConstituencyRecord
	Locations map[string]Location // Keyed by constituency; empty when the file has no coordinates
	Warnings  []models.MissingFieldWarning
}

// ErrMissingColumn is wrapped by Parse when a required column is absent.
var ErrMissingColumn = errors.New("required column missing")

// Options bounds what Parse accepts.
type Options struct {
	MaxRecords int // 0 means unlimited
}

// Parse reads a CSV table. The first row is the header.
// Rows with a blank constituency are skipped; duplicate constituencies keep the first row.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	ds := &Dataset{Locations: make(map[string]Location)}
	_, hasMargin := index[ColMargin]
	if !hasMargin {
		ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColMargin, Reason: "column not found in the data"})
	}
	_, hasLat := index[ColLatitude]
	_, hasLon := index[ColLongitude]
	hasCoords := hasLat && hasLon

	seen := make(map[string]bool)
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		get := func(col string) (string, bool) {
			i, ok := index[col]
			if !ok || i >= len(fields) {
				return "", false
			}
			return strings.TrimSpace(fields[i]), true
		}

		name, _ := get(ColConstituency)
		if name == "" {
			ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColConstituency, Row: row, Reason: "is empty; row skipped"})
			continue
		}
		if seen[name] {
			ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColConstituency, Constituency: name, Row: row, Reason: "is duplicated; first row kept"})
			continue
		}

		record := models.ConstituencyRecord{Constituency: name}
		record.LeadingCandidate, _ = get(ColLeadingCandidate)
		record.LeadingParty, _ = get(ColLeadingParty)
		record.TrailingCandidate, _ = get(ColTrailingCandidate)
		record.TrailingParty, _ = get(ColTrailingParty)

		if hasMargin {
			margin, _ := get(ColMargin)
			record.Margin = margin
			record.HasMargin = margin != ""
			if margin == "" {
				ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColMargin, Constituency: name, Row: row, Reason: "is empty"})
			}
		}

		lead, trail, ok, warn := intPair(get, ColLeadingVotes, ColTrailingVotes)
		if ok {
			record.LeadingVotes, record.TrailingVotes, record.HasVotes = lead, trail, true
		}
		ds.Warnings = appendWarning(ds.Warnings, warn, name, row)

		lead, trail, ok, warn = intPair(get, ColSurveyLead, ColSurveyTrail)
		if ok {
			record.SurveyLead, record.SurveyTrail, record.HasSurvey = lead, trail, true
		}
		ds.Warnings = appendWarning(ds.Warnings, warn, name, row)

		if err := record.Validate(); err != nil {
			ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColConstituency, Constituency: name, Row: row, Reason: "rejected: " + err.Error()})
			continue
		}

		if hasCoords {
			latText, _ := get(ColLatitude)
			lonText, _ := get(ColLongitude)
			lat, latErr := strconv.ParseFloat(latText, 64)
			lon, lonErr := strconv.ParseFloat(lonText, 64)
			if latErr == nil && lonErr == nil && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
				ds.Locations[name] = Location{Latitude: lat, Longitude: lon}
			} else {
				ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: ColLatitude + "/" + ColLongitude, Constituency: name, Row: row, Reason: "is not a valid coordinate"})
			}
		}

		if opts.MaxRecords > 0 && len(ds.Records) >= opts.MaxRecords {
			return nil, fmt.Errorf("dataset exceeds %d records", opts.MaxRecords)
		}
		seen[name] = true
		ds.Records = append(ds.Records, record)
	}

	return ds, nil
}

// intPair reads two optional non-negative integer columns. Both must be present and
// readable for the pair to be used.
func intPair(get func(string) (string, bool), leadCol, trailCol string) (int, int, bool, *models.MissingFieldWarning) {
	leadText, hasLead := get(leadCol)
	trailText, hasTrail := get(trailCol)
	if !hasLead && !hasTrail {
		return 0, 0, false, nil
	}
	if leadText == "" && trailText == "" {
		return 0, 0, false, nil
	}
	lead, leadErr := parseCount(leadText)
	trail, trailErr := parseCount(trailText)
	if leadErr != nil || trailErr != nil {
		return 0, 0, false, &models.MissingFieldWarning{Field: leadCol + "/" + trailCol, Reason: "is not a pair of non-negative integers"}
	}
	return lead, trail, true, nil
}

// parseCount accepts thousands separators ("12,345").
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func appendWarning(warnings []models.MissingFieldWarning, w *models.MissingFieldWarning, name string, row int) []models.MissingFieldWarning {
	if w == nil {
		return warnings
	}
	w.Constituency = name
	w.Row = row
	return append(warnings, *w)
}
