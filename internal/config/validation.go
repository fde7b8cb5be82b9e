package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// digestParser accepts six-field cron specs (with seconds), matching the bot scheduler.
var digestParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return c.validateCrossField()
}

func (c *Config) validateCrossField() error {
	f := c.Forecast
	if f.MinSimulations > f.MaxSimulations {
		return fmt.Errorf("forecast.min_simulations (%d) must not exceed forecast.max_simulations (%d)", f.MinSimulations, f.MaxSimulations)
	}
	if f.Simulations < f.MinSimulations || f.Simulations > f.MaxSimulations {
		return fmt.Errorf("forecast.simulations (%d) must be between %d and %d", f.Simulations, f.MinSimulations, f.MaxSimulations)
	}
	if f.MaxSimulations > f.EngineSimulationCap {
		return fmt.Errorf("forecast.max_simulations (%d) must not exceed forecast.engine_simulation_cap (%d)", f.MaxSimulations, f.EngineSimulationCap)
	}
	if f.SurveyLead > f.SurveyMax || f.SurveyTrail > f.SurveyMax {
		return fmt.Errorf("forecast.survey_lead and forecast.survey_trail must not exceed forecast.survey_max (%d)", f.SurveyMax)
	}

	d := c.Dataset
	if d.RetryWaitMin > d.RetryWaitMax {
		return fmt.Errorf("dataset.retry_wait_min must not exceed dataset.retry_wait_max")
	}

	p := c.Presenter
	if p.MinLatitude >= p.MaxLatitude {
		return fmt.Errorf("presenter.min_latitude must be less than presenter.max_latitude")
	}
	if p.MinLongitude >= p.MaxLongitude {
		return fmt.Errorf("presenter.min_longitude must be less than presenter.max_longitude")
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.DigestSchedule != "" {
		if _, err := digestParser.Parse(c.Telegram.DigestSchedule); err != nil {
			return fmt.Errorf("telegram.digest_schedule is not a valid cron spec: %w", err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	return nil
}

// formatValidationErrors turns validator errors into config key paths.
func formatValidationErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fieldPath(e.Namespace()), e.Tag()+paramSuffix(e.Param()), e.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

// fieldPath converts "Config.Forecast.PriorWeight" to "forecast.priorweight".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
