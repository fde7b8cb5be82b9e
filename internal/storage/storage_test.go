package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/models"
)

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Records: []models.ConstituencyRecord{
			{Constituency: "Varanasi", LeadingCandidate: "A", LeadingParty: "P", TrailingCandidate: "B", TrailingParty: "Q", Margin: "479505", HasMargin: true},
			{Constituency: "Amethi", LeadingCandidate: "C", LeadingParty: "P", TrailingCandidate: "D", TrailingParty: "R"},
			{Constituency: "Amritsar", LeadingCandidate: "E", LeadingParty: "R", TrailingCandidate: "F", TrailingParty: "P"},
		},
		Locations: map[string]dataset.Location{
			"Varanasi": {Latitude: 25.3, Longitude: 83.0},
		},
		Warnings: []models.MissingFieldWarning{
			{Field: "Margin", Constituency: "Amethi", Row: 2, Reason: "is empty"},
			{Field: "Margin", Constituency: "Amritsar", Row: 3, Reason: "is empty"},
		},
	}
}

func TestStorage_ReplaceAndGet(t *testing.T) {
	s := New(100)

	if err := s.Replace(testDataset(), "test.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	record, err := s.Get("Varanasi")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.LeadingCandidate != "A" {
		t.Errorf("Expected leading candidate A, got %s", record.LeadingCandidate)
	}

	if s.Len() != 3 {
		t.Errorf("Expected 3 records, got %d", s.Len())
	}
	source, loadedAt := s.Source()
	if source != "test.csv" || loadedAt.IsZero() {
		t.Errorf("Unexpected source %q loaded at %v", source, loadedAt)
	}
}

func TestStorage_GetMissingConstituency(t *testing.T) {
	s := New(100)
	if err := s.Replace(testDataset(), "test.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	_, err := s.Get("Nowhere")
	var missing *models.MissingConstituencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingConstituencyError, got %v", err)
	}
	if missing.Constituency != "Nowhere" {
		t.Errorf("Expected offending key Nowhere, got %s", missing.Constituency)
	}

	// The store stays usable after a miss
	if _, err := s.Get("Amethi"); err != nil {
		t.Errorf("Get after miss failed: %v", err)
	}
}

func TestStorage_ReplaceDiscardsPrevious(t *testing.T) {
	s := New(100)
	if err := s.Replace(testDataset(), "first.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	next := &dataset.Dataset{
		Records: []models.ConstituencyRecord{
			{Constituency: "Wayanad", LeadingCandidate: "G", TrailingCandidate: "H"},
		},
	}
	if err := s.Replace(next, "second.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if _, err := s.Get("Varanasi"); err == nil {
		t.Error("Expected old records to be discarded")
	}
	if len(s.Warnings()) != 0 {
		t.Errorf("Expected warnings reset, got %v", s.Warnings())
	}
	if _, ok := s.Location("Varanasi"); ok {
		t.Error("Expected old locations to be discarded")
	}
}

func TestStorage_ReplaceRejectsOversizedDataset(t *testing.T) {
	s := New(2)
	if err := s.Replace(testDataset(), "test.csv"); err == nil {
		t.Fatal("Expected error for dataset above limit")
	}
	if s.Len() != 0 {
		t.Errorf("Failed replace must not change state, got %d records", s.Len())
	}
}

func TestStorage_ReplaceRejectsDuplicates(t *testing.T) {
	s := New(0)
	ds := testDataset()
	ds.Records = append(ds.Records, ds.Records[0])

	if err := s.Replace(ds, "dup.csv"); err == nil {
		t.Fatal("Expected error for duplicate constituency")
	}
}

func TestStorage_OrderAndSearch(t *testing.T) {
	s := New(0)
	if err := s.Replace(testDataset(), "test.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	names := s.Constituencies()
	expected := []string{"Varanasi", "Amethi", "Amritsar"}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Constituencies()[%d] = %s, expected %s", i, names[i], expected[i])
		}
	}

	matches := s.Search("am")
	if len(matches) != 2 || matches[0] != "Amethi" || matches[1] != "Amritsar" {
		t.Errorf("Search(am) = %v", matches)
	}

	all := s.All()
	all[0].LeadingCandidate = "changed"
	if r, _ := s.Get("Varanasi"); r.LeadingCandidate != "A" {
		t.Error("All() must return copies")
	}
}

func TestStorage_WarningsFor(t *testing.T) {
	s := New(0)
	ds := testDataset()
	ds.Warnings = append(ds.Warnings, models.MissingFieldWarning{Field: "Latitude", Reason: "column not found"})
	if err := s.Replace(ds, "test.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	warnings := s.WarningsFor("Amethi")
	if len(warnings) != 2 {
		t.Fatalf("Expected dataset-wide + Amethi warning, got %v", warnings)
	}
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	s := New(0)
	if err := s.Replace(testDataset(), "test.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.Get("Amethi")
				_ = s.Constituencies()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Replace(testDataset(), "reload.csv")
			}
		}()
	}
	wg.Wait()

	if s.Len() != 3 {
		t.Errorf("Expected 3 records after concurrent reloads, got %d", s.Len())
	}
}
