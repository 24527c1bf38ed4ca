package config

import (
	"fmt"
	"strings"

	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources: a .env file,
// config.yaml and the JSON files under ./config/.
// Load order:
//  1. .env file (environment variables)
//  2. config.yaml (base configuration)
//  3. config/subsections.json (tracked sub-forums, merged in)
//
// Environment variables override same-named settings from the files.
func LoadConfig() {
	// Environment variables from .env, ignored when the file is absent.
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, skipping")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// A missing base file is fine, environment variables and
			// merged sections still apply.
			logging.Debug().Msg("base config.yaml not found, using environment and defaults")
		} else {
			panic(fmt.Errorf("fatal error reading base config: %w", err))
		}
	}

	// Tracked subsections live in their own file so the settings UI can
	// rewrite them without touching the base config.
	viper.SetConfigName("subsections")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.Debug().Msg("config/subsections.json not found, skipping merge")
		} else {
			panic(fmt.Errorf("fatal error merging subsections config: %w", err))
		}
	}
}

func setDefaults() {
	viper.SetDefault("db_path", "data/webtlo.db")
	viper.SetDefault("forum.base_url", "https://rutracker.org/forum")
	viper.SetDefault("forum.timeout_seconds", 40)
	viper.SetDefault("api.base_url", "https://rep.rutracker.cc/krs/api/v1")
	viper.SetDefault("api.timeout_seconds", 40)
	viper.SetDefault("reports.send_report_api", true)
	viper.SetDefault("reports.send_report_forum", true)
	viper.SetDefault("reports.send_summary_report", true)
	viper.SetDefault("reports.unset_other_forums", true)
	viper.SetDefault("automation.send_reports", true)
	viper.SetDefault("automation.cron_spec", "@daily")
	viper.SetDefault("automation.min_run_interval", 3600)
}

// Get decodes the loaded configuration into its typed form and checks
// the settings the engine cannot run without.
func Get() (*models.Config, error) {
	var cfg models.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.User.ID == 0 || cfg.User.Login == "" {
		return nil, fmt.Errorf("tracker account is not configured (user.user_id, user.login)")
	}

	return &cfg, nil
}
