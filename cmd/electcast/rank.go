package main

import (
	"github.com/spf13/cobra"

	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/presenter"
)

var (
	topK       int
	rankFormat string
	mapFormat  string
)

func init() {
	rankCmd.Flags().IntVarP(&topK, "top", "k", 0, "Number of races to show (default: ranking.top_k)")
	rankCmd.Flags().StringVarP(&rankFormat, "format", "f", "text", "Output format: text, json or yaml")
	mapCmd.Flags().StringVarP(&mapFormat, "format", "f", "json", "Output format: text, json or yaml")
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Forecast every constituency and list the closest races",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := presenter.ParseFormat(rankFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		forecaster, err := newForecaster(ctx)
		if err != nil {
			return err
		}

		races, raceErrors, err := forecaster.Rank(ctx, topK)
		if err != nil {
			return err
		}
		if len(raceErrors) > 0 {
			logger.Warn("%d constituencies could not be forecast", len(raceErrors))
		}
		return presenter.EncodeRanking(cmd.OutOrStdout(), races, format)
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print map coordinates for every loaded constituency",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := presenter.ParseFormat(mapFormat)
		if err != nil {
			return err
		}
		forecaster, err := newForecaster(cmd.Context())
		if err != nil {
			return err
		}
		return presenter.EncodeMapPoints(cmd.OutOrStdout(), forecaster.MapPoints(), format)
	},
}
