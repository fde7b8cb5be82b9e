// Package storage provides thread-safe in-memory storage for the active election dataset.
// Uploading a new file replaces the whole dataset; records are never edited in place.
//
// Only one dataset is held at a time and nothing is written to disk: a forecast view
// lives for as long as its dataset does.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/models"
)

// Storage provides thread-safe access to the loaded constituency records
type Storage struct {
	records   map[string]*models.ConstituencyRecord
	order     []string
	locations map[string]dataset.Location
	warnings  []models.MissingFieldWarning
	source    string
	loadedAt  time.Time
	mu        sync.RWMutex

	// Configuration
	maxRecords int
}

// New creates an empty Storage that accepts at most maxRecords records (0 = unlimited)
func New(maxRecords int) *Storage {
	return &Storage{
		records:    make(map[string]*models.ConstituencyRecord),
		locations:  make(map[string]dataset.Location),
		maxRecords: maxRecords,
	}
}

// Replace swaps in a freshly parsed dataset, discarding the previous one
func (s *Storage) Replace(ds *dataset.Dataset, source string) error {
	if ds == nil {
		return fmt.Errorf("dataset must not be nil")
	}
	if s.maxRecords > 0 && len(ds.Records) > s.maxRecords {
		return fmt.Errorf("dataset has %d records, limit is %d", len(ds.Records), s.maxRecords)
	}

	records := make(map[string]*models.ConstituencyRecord, len(ds.Records))
	order := make([]string, 0, len(ds.Records))
	for i := range ds.Records {
		record := ds.Records[i]
		if err := record.Validate(); err != nil {
			return fmt.Errorf("invalid record %q: %w", record.Constituency, err)
		}
		if _, exists := records[record.Constituency]; exists {
			return fmt.Errorf("duplicate constituency: %s", record.Constituency)
		}
		records[record.Constituency] = &record
		order = append(order, record.Constituency)
	}

	locations := make(map[string]dataset.Location, len(ds.Locations))
	for name, loc := range ds.Locations {
		locations[name] = loc
	}
	warnings := append([]models.MissingFieldWarning(nil), ds.Warnings...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.order = order
	s.locations = locations
	s.warnings = warnings
	s.source = source
	s.loadedAt = time.Now()
	return nil
}

// Get retrieves a record by constituency name
func (s *Storage) Get(constituency string) (models.ConstituencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[constituency]
	if !exists {
		return models.ConstituencyRecord{}, &models.MissingConstituencyError{Constituency: constituency}
	}
	return *record, nil
}

// Constituencies returns the constituency names in file order
func (s *Storage) Constituencies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.order...)
}

// All returns copies of all records in file order
func (s *Storage) All() []models.ConstituencyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.ConstituencyRecord, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, *s.records[name])
	}
	return records
}

// Location returns the file-provided coordinate for a constituency, if any
func (s *Storage) Location(constituency string) (dataset.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[constituency]
	return loc, ok
}

// Locations returns a copy of all file-provided coordinates
func (s *Storage) Locations() map[string]dataset.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]dataset.Location, len(s.locations))
	for name, loc := range s.locations {
		out[name] = loc
	}
	return out
}

// Warnings returns the warnings accumulated while loading the active dataset
func (s *Storage) Warnings() []models.MissingFieldWarning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.MissingFieldWarning(nil), s.warnings...)
}

// WarningsFor returns dataset-wide warnings plus those for one constituency
func (s *Storage) WarningsFor(constituency string) []models.MissingFieldWarning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.MissingFieldWarning
	for _, w := range s.warnings {
		if w.Constituency == "" || w.Constituency == constituency {
			out = append(out, w)
		}
	}
	return out
}

// Search returns constituency names containing query (case-insensitive), sorted
func (s *Storage) Search(query string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []string
	for _, name := range s.order {
		if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// Len returns the number of loaded records
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// Source returns where the active dataset came from and when it was loaded
func (s *Storage) Source() (string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.source, s.loadedAt
}
