package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/presenter"
	"github.com/rewired-gh/electcast/internal/service"
)

var (
	constituency string
	surveyLead   int
	surveyTrail  int
	simulations  int
	seed         uint64
	outputFormat string
	includeCurve bool
)

func init() {
	forecastCmd.Flags().StringVarP(&constituency, "constituency", "n", "", "Constituency to forecast")
	forecastCmd.Flags().IntVar(&surveyLead, "lead", 0, "Survey respondents backing the previous leader (default: record or config)")
	forecastCmd.Flags().IntVar(&surveyTrail, "trail", 0, "Survey respondents backing the previous runner-up (default: record or config)")
	forecastCmd.Flags().IntVarP(&simulations, "simulations", "s", 0, "Monte Carlo draws (default: forecast.simulations)")
	forecastCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for a reproducible run (0: forecast.seed)")
	forecastCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or yaml")
	forecastCmd.Flags().BoolVar(&includeCurve, "curve", false, "Include the posterior density curve in json/yaml output")
	_ = forecastCmd.MarkFlagRequired("constituency")
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast one constituency",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := presenter.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		forecaster, err := newForecaster(ctx)
		if err != nil {
			return err
		}

		req := service.Request{
			Constituency: constituency,
			Seed:         seed,
		}
		if cmd.Flags().Changed("simulations") {
			n := simulations
			req.Simulations = &n
		}
		if cmd.Flags().Changed("lead") || cmd.Flags().Changed("trail") {
			survey := forecaster.DefaultSurvey()
			if cmd.Flags().Changed("lead") {
				survey.SurveyLead = surveyLead
			}
			if cmd.Flags().Changed("trail") {
				survey.SurveyTrail = surveyTrail
			}
			req.Survey = &survey
		}

		view, err := forecaster.Forecast(ctx, req)
		if err != nil {
			return describeForecastError(err)
		}
		return presenter.EncodeView(cmd.OutOrStdout(), view, format, includeCurve)
	},
}

// describeForecastError adds a hint to errors a user can fix from the command line.
func describeForecastError(err error) error {
	var missing *models.MissingConstituencyError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w (run `electcast map` to list loaded constituencies)", missing)
	}
	return err
}
