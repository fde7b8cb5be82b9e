package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/metrics"
	"github.com/rewired-gh/electcast/internal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		tgConfig := cfg.GetTelegramConfig()
		if !tgConfig.Enabled {
			return fmt.Errorf("telegram is disabled: set telegram.enabled and telegram.bot_token")
		}

		// Setup graceful shutdown
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				logger.Info("Shutdown signal received, cleaning up...")
				cancel()
			case <-ctx.Done():
			}
		}()

		forecaster, err := newForecaster(ctx)
		if err != nil {
			return err
		}

		if cfg.Metrics.Enabled {
			srv := metrics.NewServer(cfg.Metrics.ListenAddr, forecaster.Len)
			go func() {
				logger.Info("Metrics and health endpoints listening on %s", cfg.Metrics.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Metrics server failed: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to stop metrics server: %v", err)
				}
			}()
		}

		bot, err := telegram.NewBot(tgConfig, forecaster)
		if err != nil {
			return err
		}

		err = bot.Run(ctx)
		logger.Info("Service stopped")
		return err
	},
}
