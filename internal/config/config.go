// Package config loads the process-wide Credential and Config values BOAR
// services are built from. All settings are environment variables (see
// spec.md §6); there is no YAML/file configuration layer in this runtime.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
)

var Service = ""

// Credential holds the process-wide secrets and connection settings a BOAR
// service is built from (spec.md §3). It is created once at startup and is
// immutable thereafter.
type Credential struct {
	ErpBaseURL string `cfg:"erp_url" log:"-"`
	Database   string `cfg:"erp_db"`
	User       string `cfg:"erp_user"`
	Password   string `cfg:"erp_password" log:"-"`

	LLMAPIKey string `cfg:"llm_api_key" log:"-"`
	LLMModel  string `cfg:"llm_model" default:"gpt-4o-mini"`
	// LLMProvider selects the Orchestrator's backend: "openai" (any
	// OpenAI-compatible chat/completions endpoint) or "anthropic". Mirrors
	// the teacher's cmd/at/main.go SelectLLM switch, generalized to a
	// config field instead of a CLI-only constant.
	LLMProvider string `cfg:"llm_provider" default:"openai"`

	ServiceAPIKey    string `cfg:"api_key" log:"-"`
	WebhookSecret    string `cfg:"webhook_secret" log:"-"`
	EncryptionKey    string `cfg:"encryption_key" log:"-"`
	TelegramBotToken string `cfg:"telegram_bot_token" log:"-"`
}

// Validate enforces the invariant from spec.md §3: the service refuses to
// start if the ERP connection fields are missing. LLM-dependent paths are
// allowed to run with LLMAPIKey empty; callers must report "AI unavailable"
// rather than fail catastrophically (see internal/boarerr.KindAiUnavailable).
func (c Credential) Validate() error {
	missing := make([]string, 0, 4)
	if c.ErpBaseURL == "" {
		missing = append(missing, "ERP_URL")
	}
	if c.Database == "" {
		missing = append(missing, "ERP_DB")
	}
	if c.User == "" {
		missing = append(missing, "ERP_USER")
	}
	if c.Password == "" {
		missing = append(missing, "ERP_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}

// HasLLM reports whether LLM-dependent features may be used.
func (c Credential) HasLLM() bool {
	return c.LLMAPIKey != ""
}

// SMTP holds transactional-email transport settings. Any zero value means
// SMTP dispatch is unavailable and the Notifier degrades silently.
type SMTP struct {
	Host     string `cfg:"smtp_host"`
	Port     int    `cfg:"smtp_port" default:"587"`
	User     string `cfg:"smtp_user"`
	Password string `cfg:"smtp_password" log:"-"`
	From     string `cfg:"from_email"`
}

// Configured reports whether enough SMTP settings are present to attempt a send.
func (s SMTP) Configured() bool {
	return s.Host != "" && s.From != ""
}

// Webhooks holds the per-event destination URLs named in spec.md §4.D's
// event catalog. An empty URL means that channel is skipped for the event.
type Webhooks struct {
	ContractExpiry string `cfg:"webhook_contract_expiry_url"`
	Milestone      string `cfg:"webhook_milestone_url"`
	Compliance     string `cfg:"webhook_compliance_url"`
	Report         string `cfg:"webhook_report_url"`
	Overdue        string `cfg:"webhook_overdue_url"`
	Assignment     string `cfg:"webhook_assignment_url"`
	Manager        string `cfg:"webhook_manager_url"`
}

// Server configures the inbound HTTP surface.
type Server struct {
	Host            string `cfg:"host"`
	Port            string `cfg:"port" default:"8080"`
	Debug           bool   `cfg:"debug"`
	AllowedOrigins  string `cfg:"allowed_origins"`
}

// Config is the full process configuration, assembled from environment
// variables per spec.md §6.
type Config struct {
	LogLevel string `cfg:"log_level" default:"info"`

	Credential Credential `cfg:",squash"`
	SMTP       SMTP       `cfg:",squash"`
	Webhooks   Webhooks   `cfg:",squash"`
	Server     Server     `cfg:",squash"`

	// SchedulerTimezone is the IANA timezone name all cron/interval triggers
	// resolve against. Defaults to UTC per spec.md §4.C.
	SchedulerTimezone string `cfg:"scheduler_timezone" default:"UTC"`

	// OTPDemoMode gates the "echo code when SMTP fails" fallback documented
	// as an open question in spec.md §9. Off by default in production.
	OTPDemoMode bool `cfg:"otp_demo_mode" default:"false"`
}

// Load reads Config from the process environment. Env vars carry no common
// prefix (they are named verbatim in spec.md §6), so the env loader is
// configured with an empty prefix.
func Load(ctx context.Context, serviceName string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, serviceName, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("")))); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	if err := cfg.Credential.Validate(); err != nil {
		return nil, err
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
