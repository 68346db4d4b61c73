package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	App     App     `yaml:"app"`
	OpenAI  OpenAI  `yaml:"openai"`
	Twilio  Twilio  `yaml:"twilio"`
	CalDAV  CalDAV  `yaml:"caldav"`
	Todoist Todoist `yaml:"todoist"`
	Limits  Limits  `yaml:"limits"`
	Retry   Retry   `yaml:"retry"`
}

type Server struct {
	// Listen address of the webhook server
	Addr string `yaml:"addr" example:":8080"`
}

type App struct {
	// IANA time zone used to resolve all date phrases
	Timezone string `yaml:"timezone" example:"Asia/Jerusalem" validate:"required"`
	// First day of the week: monday or sunday
	WeekStart string `yaml:"week_start" example:"monday" validate:"oneof=monday sunday"`
	// Minimum provider confidence before falling back to clarification
	ConfidenceThreshold float64 `yaml:"confidence_threshold" example:"0.6"`
	// How long a pending confirmation stays valid
	ConfirmTTL time.Duration `yaml:"confirm_ttl" example:"10m"`
	// Overall processing budget per inbound message
	RequestTimeout time.Duration `yaml:"request_timeout" example:"45s"`
	// Number of concurrent message workers
	Workers int `yaml:"workers" example:"4"`
	// Local time of the daily digest, HH:MM, empty disables it
	DigestTime string `yaml:"digest_time" example:"07:00"`
}

type OpenAI struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model used for intent routing and chat answers
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type Twilio struct {
	// Twilio account SID
	AccountSID string `yaml:"account_sid" example:"ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx" validate:"required"`
	// Twilio auth token
	AuthToken string `yaml:"auth_token" validate:"required"`
	// WhatsApp-enabled sender number, with the whatsapp: prefix
	FromNumber string `yaml:"from_number" example:"whatsapp:+14155238886" validate:"required"`
	// The single user allowed to talk to the assistant
	UserNumber string `yaml:"user_number" example:"whatsapp:+972501234567" validate:"required"`
}

type CalDAV struct {
	// CalDAV server url
	URL string `yaml:"url" example:"https://caldav.icloud.com"`
	// CalDAV username
	Username string `yaml:"username" validate:"required"`
	// CalDAV app-specific password
	Password string `yaml:"password" validate:"required"`
	// Optional calendar path, discovered when empty
	CalendarPath string `yaml:"calendar_path"`
}

type Todoist struct {
	// Todoist API token
	Token string `yaml:"token" validate:"required"`
	// Optional project to keep assistant tasks in
	ProjectID string `yaml:"project_id"`
}

type Limits struct {
	// Outbound requests per minute to the AI provider
	OpenAIRPM int `yaml:"openai_rpm" example:"60"`
	// Outbound tokens per minute to the AI provider
	OpenAITPM int `yaml:"openai_tpm" example:"40000"`
	// Outbound requests per minute to calendar and task providers
	ConnectorRPM int `yaml:"connector_rpm" example:"120"`
}

type Retry struct {
	// Maximum attempts per outbound call
	MaxAttempts int `yaml:"max_attempts" example:"3"`
	// First backoff delay
	BaseDelay time.Duration `yaml:"base_delay" example:"500ms"`
	// Backoff delay ceiling
	MaxDelay time.Duration `yaml:"max_delay" example:"8s"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Addr == "" {
		result.Server.Addr = ":8080"
	}
	if result.App.Timezone == "" {
		result.App.Timezone = "UTC"
	}
	if result.App.WeekStart == "" {
		result.App.WeekStart = "monday"
	}
	if result.App.ConfidenceThreshold == 0 {
		result.App.ConfidenceThreshold = 0.6
	}
	if result.App.ConfirmTTL == 0 {
		result.App.ConfirmTTL = 10 * time.Minute
	}
	if result.App.RequestTimeout == 0 {
		result.App.RequestTimeout = 45 * time.Second
	}
	if result.App.Workers == 0 {
		result.App.Workers = 4
	}
	if result.OpenAI.BaseURL == "" {
		result.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if result.OpenAI.Model == "" {
		result.OpenAI.Model = "gpt-4o-mini"
	}
	if result.CalDAV.URL == "" {
		result.CalDAV.URL = "https://caldav.icloud.com"
	}
	if result.Limits.OpenAIRPM == 0 {
		result.Limits.OpenAIRPM = 60
	}
	if result.Limits.OpenAITPM == 0 {
		result.Limits.OpenAITPM = 40000
	}
	if result.Limits.ConnectorRPM == 0 {
		result.Limits.ConnectorRPM = 120
	}
	if result.Retry.MaxAttempts == 0 {
		result.Retry.MaxAttempts = 3
	}
	if result.Retry.BaseDelay == 0 {
		result.Retry.BaseDelay = 500 * time.Millisecond
	}
	if result.Retry.MaxDelay == 0 {
		result.Retry.MaxDelay = 8 * time.Second
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, oops.Errorf("failed to load timezone %q: %w", c.App.Timezone, err)
	}

	return loc, nil
}

func (c *Config) WeekStartDay() time.Weekday {
	if c.App.WeekStart == "sunday" {
		return time.Sunday
	}

	return time.Monday
}
