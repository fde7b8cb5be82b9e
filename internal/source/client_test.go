package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rewired-gh/electcast/internal/dataset"
)

const testCSV = "Constituency,Leading Candidate,Leading Party,Trailing Candidate,Trailing Party,Margin\n" +
	"Varanasi,A,P,B,Q,479505\n" +
	"Amethi,C,P,D,R,55120\n"

func testClient() *Client {
	return NewClient(ClientConfig{
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		MaxBytes:     1 << 20,
	})
}

func TestFetch_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/consit2019.csv" {
			t.Errorf("Expected path /consit2019.csv, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(testCSV))
	}))
	defer mockServer.Close()

	ds, err := testClient().Fetch(context.Background(), mockServer.URL+"/consit2019.csv")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(ds.Records))
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(testCSV))
	}))
	defer mockServer.Close()

	ds, err := testClient().Fetch(context.Background(), mockServer.URL)
	if err != nil {
		t.Fatalf("Fetch failed after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(ds.Records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(ds.Records))
	}
}

func TestFetch_NotFound(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer mockServer.Close()

	_, err := testClient().Fetch(context.Background(), mockServer.URL)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("Expected 404 error, got %v", err)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testCSV))
	}))
	defer mockServer.Close()

	client := NewClient(ClientConfig{MaxBytes: 16})
	_, err := client.Fetch(context.Background(), mockServer.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
}

func TestFetch_BadTable(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Name,Party\nA,B\n"))
	}))
	defer mockServer.Close()

	_, err := testClient().Fetch(context.Background(), mockServer.URL)
	if !errors.Is(err, dataset.ErrMissingColumn) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestOpen_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	ds, err := testClient().Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if ds.Records[1].Constituency != "Amethi" {
		t.Errorf("Unexpected second record: %+v", ds.Records[1])
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := testClient().Open(context.Background(), ""); err == nil {
		t.Error("Expected error for empty location")
	}
	if _, err := testClient().Open(context.Background(), "/nonexistent/results.csv"); err == nil {
		t.Error("Expected error for missing file")
	}
}
