// Command boarsvc is the BOAR runtime process: it wires the ERP Gateway,
// LLM Orchestrator, Scheduled Job Runtime, Multi-Channel Notifier,
// OTP/Session Authenticator, Analytical Pipelines, Agent Surface, Telegram
// adapter and HTTP surface together and runs them until canceled.
//
// Bootstrap shape (config load, logi-initialized slog, into.Init wrapping
// main) is adapted from the teacher's cmd/at/main.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/boarsvc/boar/internal/agent"
	"github.com/boarsvc/boar/internal/config"
	"github.com/boarsvc/boar/internal/crypto"
	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/httpapi"
	"github.com/boarsvc/boar/internal/llm"
	"github.com/boarsvc/boar/internal/llm/anthropic"
	"github.com/boarsvc/boar/internal/llm/openai"
	"github.com/boarsvc/boar/internal/notifier"
	"github.com/boarsvc/boar/internal/otp"
	"github.com/boarsvc/boar/internal/pipelines"
	"github.com/boarsvc/boar/internal/scheduler"
	"github.com/boarsvc/boar/internal/telegram"
)

var (
	name    = "boarsvc"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cred := cfg.Credential
	if cred.EncryptionKey != "" {
		key, err := crypto.DeriveKey(cred.EncryptionKey)
		if err != nil {
			return fmt.Errorf("derive encryption key: %w", err)
		}
		cred, err = crypto.DecryptCredential(cred, key)
		if err != nil {
			return fmt.Errorf("decrypt credential: %w", err)
		}
	}

	gw, err := erp.New(erp.Config{
		BaseURL:  cred.ErpBaseURL,
		Database: cred.Database,
		User:     cred.User,
		Password: cred.Password,
	})
	if err != nil {
		return fmt.Errorf("create erp gateway: %w", err)
	}

	orchestrator, err := newOrchestrator(cred)
	if err != nil {
		// Non-fatal: spec.md §3 allows running without LLM-dependent
		// features, reporting AiUnavailable from the paths that need it.
		slog.Warn("llm orchestrator unavailable", "error", err)
	}

	webhookSender, err := notifier.NewWebhookSender(cred.WebhookSecret)
	if err != nil {
		return fmt.Errorf("create webhook sender: %w", err)
	}
	emailSender := notifier.NewEmailSender(cfg.SMTP)
	notif := notifier.NewNotifier(webhookSender, emailSender, cfg.Webhooks)

	auth := otp.New(gw, emailSender, cfg.OTPDemoMode)
	if orchestrator != nil {
		auth.SetMemoryClearer(orchestrator.Memory)
	}

	surface := agent.NewSurface(gw, orchestrator, auth)

	sched, err := scheduler.New(cfg.SchedulerTimezone)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	registerDefaultCatalog(sched, gw, orchestrator, notif)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Shutdown(true)

	if cred.TelegramBotToken != "" {
		bot, err := telegram.New(cred.TelegramBotToken, auth, surface)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				slog.Error("telegram bot stopped", "error", err)
			}
		}()
	} else {
		slog.Info("telegram bot disabled: TELEGRAM_BOT_TOKEN not configured")
	}

	api, err := httpapi.New(httpapi.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cred.ServiceAPIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, sched, auth, notif, surface)
	if err != nil {
		return fmt.Errorf("create http api: %w", err)
	}

	return api.Start(ctx)
}

// newOrchestrator selects the LLM provider by cfg.Credential.LLMProvider,
// matching the teacher's cmd/at/main.go SelectLLM switch generalized to a
// config field. Returns a nil *llm.Orchestrator when no LLM API key is
// configured (it checks cred.HasLLM itself); every caller must tolerate
// that: RunStructured then returns the rule-based fallback and ToolCall
// returns an AiUnavailable error.
func newOrchestrator(cred config.Credential) (*llm.Orchestrator, error) {
	if !cred.HasLLM() {
		return nil, fmt.Errorf("llm: no LLM_API_KEY configured")
	}

	var provider llm.Provider
	switch cred.LLMProvider {
	case "anthropic":
		provider = anthropic.New(cred.LLMAPIKey, cred.LLMModel, 4096)
	default:
		p, err := openai.New(cred.LLMAPIKey, cred.LLMModel, "")
		if err != nil {
			return nil, fmt.Errorf("create openai provider: %w", err)
		}
		provider = p
	}

	return llm.NewOrchestrator(provider, cred.LLMModel), nil
}

// registerDefaultCatalog wires the schedule catalog from spec.md §4.C /
// SPEC_FULL.md §7: each analytical pipeline runs on its own trigger,
// registered here rather than hardcoded in internal/scheduler so the
// package stays reusable across services with different catalogs.
func registerDefaultCatalog(sched *scheduler.Scheduler, gw *erp.Gateway, orch *llm.Orchestrator, notif *notifier.Notifier) {
	overdue := pipelines.NewOverduePipeline(gw, orch, notif)
	workload := pipelines.NewWorkloadPipeline(gw, orch, notif)
	expiry := pipelines.NewExpiryPipeline(gw, orch, notif)
	compliance := pipelines.NewCompliancePipeline(gw, orch, notif)
	reports := pipelines.NewReportPipeline(overdue, workload, orch, notif)
	milestones := pipelines.NewMilestonePipeline(gw, notif)

	register := func(id, jobName string, trigger scheduler.Trigger, run func(ctx context.Context) error) {
		if err := sched.Register(id, jobName, trigger, run); err != nil {
			slog.Error("register job failed", "job", id, "error", err)
		}
	}

	register("overdue_monitor", "Overdue Task Monitor", scheduler.Interval(15*time.Minute), func(ctx context.Context) error {
		_, err := overdue.Run(ctx, time.Now())
		return err
	})
	register("expiry_monitor", "Contract Expiry Monitor", scheduler.Cron("0 7 * * *"), func(ctx context.Context) error {
		_, err := expiry.Run(ctx, time.Now())
		return err
	})
	register("workload_balance", "Workload Balance Check", scheduler.Interval(time.Hour), func(ctx context.Context) error {
		_, err := workload.Run(ctx, time.Now())
		return err
	})
	register("compliance_checker", "Compliance Checker", scheduler.Cron("0 8 * * 1"), func(ctx context.Context) error {
		_, err := compliance.Run(ctx, time.Now())
		return err
	})
	register("daily_report", "Daily Report", scheduler.Cron("0 6 * * *"), func(ctx context.Context) error {
		_, err := reports.Run(ctx, pipelines.ReportDaily, time.Now())
		return err
	})
	register("weekly_report", "Weekly Report", scheduler.Cron("0 7 * * 1"), func(ctx context.Context) error {
		_, err := reports.Run(ctx, pipelines.ReportWeekly, time.Now())
		return err
	})
	register("delivery_monitor", "Delivery Milestone Monitor", scheduler.Interval(6*time.Hour), func(ctx context.Context) error {
		_, err := milestones.Run(ctx, time.Now())
		return err
	})
}
