package models

// Config is the fully decoded application configuration.
type Config struct {
	User        UserConfig       `json:"user" mapstructure:"user"`
	Forum       ForumConfig      `json:"forum" mapstructure:"forum"`
	API         APIConfig        `json:"api" mapstructure:"api"`
	Reports     ReportsConfig    `json:"reports" mapstructure:"reports"`
	Automation  AutomationConfig `json:"automation" mapstructure:"automation"`
	Subsections []int64          `json:"subsections" mapstructure:"subsections"`
	DBPath      string           `json:"db_path" mapstructure:"db_path"`
}

// UserConfig identifies the tracker account the reports are sent from.
type UserConfig struct {
	ID       int64  `json:"user_id" mapstructure:"user_id"`
	Login    string `json:"login" mapstructure:"login"`
	Password string `json:"password" mapstructure:"password"`
	APIKey   string `json:"api_key" mapstructure:"api_key"`
}

// ForumConfig describes the forum mirror used for post editing.
type ForumConfig struct {
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// APIConfig describes the keeper reports API endpoint.
type APIConfig struct {
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ReportsConfig holds the report delivery options.
type ReportsConfig struct {
	SendAPI           bool    `json:"send_report_api" mapstructure:"send_report_api"`
	SendForum         bool    `json:"send_report_forum" mapstructure:"send_report_forum"`
	SendSummary       bool    `json:"send_summary_report" mapstructure:"send_summary_report"`
	UnsetOtherForums  bool    `json:"unset_other_forums" mapstructure:"unset_other_forums"`
	AutoClearMessages bool    `json:"auto_clear_messages" mapstructure:"auto_clear_messages"`
	ExcludeForumsIDs  []int64 `json:"exclude_forums_ids" mapstructure:"exclude_forums_ids"`
	// RevolutionDate overrides the built-in forum posting cutoff,
	// formatted as 2006-01-02. Empty means the default.
	RevolutionDate string `json:"revolution_date" mapstructure:"revolution_date"`
}

// AutomationConfig controls the scheduled runs.
type AutomationConfig struct {
	SendReports bool   `json:"send_reports" mapstructure:"send_reports"`
	CronSpec    string `json:"cron_spec" mapstructure:"cron_spec"`
	// MinRunInterval is the minimum number of seconds between two
	// report runs. A run attempted earlier aborts during pre-flight.
	MinRunInterval int64 `json:"min_run_interval" mapstructure:"min_run_interval"`
}
