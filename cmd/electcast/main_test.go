package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `Constituency,Leading Candidate,Leading Party,Trailing Candidate,Trailing Party,Margin
Varanasi,Asha,PA,Bharat,PB,"12,000"
Puri,Esha,PE,Farid,PF,
`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	resetFlags()
	t.Cleanup(resetFlags)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so that one run's values and
// Changed state never leak into the next.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(reset)
	}
}

func TestForecastCommand(t *testing.T) {
	data := writeDataset(t)

	out, err := execute(t, "forecast", "--data", data, "--constituency", "Varanasi",
		"--lead", "58", "--trail", "42", "--seed", "5", "--format", "json")
	require.NoError(t, err)

	var view struct {
		Prior struct {
			AlphaPrior float64 `json:"alpha_prior"`
			BetaPrior  float64 `json:"beta_prior"`
		} `json:"prior"`
		Result struct {
			ProbLead  float64 `json:"prob_lead"`
			ProbTrail float64 `json:"prob_trail"`
		} `json:"result"`
		AnalyticProbLead float64 `json:"analytic_prob_lead"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 6001.0, view.Prior.AlphaPrior)
	assert.Equal(t, 4001.0, view.Prior.BetaPrior)
	assert.InDelta(t, 1.0, view.Result.ProbLead+view.Result.ProbTrail, 1e-12)
	assert.InDelta(t, view.AnalyticProbLead, view.Result.ProbLead, 0.02)
}

func TestForecastCommandErrors(t *testing.T) {
	data := writeDataset(t)

	_, err := execute(t, "forecast", "--data", data, "--constituency", "Atlantis", "--format", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `constituency not found: "Atlantis"`)

	_, err = execute(t, "forecast", "--data", data, "--constituency", "Puri", "--simulations", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulations 999")

	_, err = execute(t, "forecast", "--data", data, "--constituency", "Puri", "--format", "xml")
	assert.Error(t, err)
}

func TestForecastCommandSimulationCount(t *testing.T) {
	data := writeDataset(t)

	_, err := execute(t, "forecast", "--data", data, "--constituency", "Puri", "--simulations", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid simulation count 0: must be positive")

	_, err = execute(t, "forecast", "--data", data, "--constituency", "Puri", "--simulations=-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid simulation count -5")

	out, err := execute(t, "forecast", "--data", data, "--constituency", "Puri", "--seed", "5", "--format", "json")
	require.NoError(t, err)
	var view struct {
		Result struct {
			Simulations int `json:"simulations"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 10000, view.Result.Simulations)
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	data := writeDataset(t)

	_, err := execute(t, "forecast", "--data", data, "--constituency", "Puri", "--simulations", "999", "--format", "xml")
	require.Error(t, err)

	out, err := execute(t, "forecast", "--data", data, "--constituency", "Puri", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Puri")
}

func TestRankCommand(t *testing.T) {
	data := writeDataset(t)

	out, err := execute(t, "rank", "--data", data, "--top", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
}

func TestMapCommand(t *testing.T) {
	data := writeDataset(t)

	out, err := execute(t, "map", "--data", data, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "constituency: Varanasi")
	assert.Contains(t, out, "synthetic: true")
}

func TestBotCommandRequiresTelegram(t *testing.T) {
	_, err := execute(t, "bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram is disabled")
}
