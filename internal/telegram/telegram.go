// Package telegram implements the thin Telegram Employee Bot Adapter
// (SPEC_FULL.md §12): it wires update polling to the OTP Authenticator's
// link/verify/unlink commands and the Agent Surface for everything else,
// grounded on RahulChand028-Mishri's internal/gateway/telegram.go for the
// update-loop shape. Button/menu copy and conversational UX are out of
// scope (spec.md's explicit non-goal) — this only proves the runtime's OTP
// and Agent Surface are reachable from a real chat transport.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Authenticator is the narrow slice of otp.Authenticator the bot commands
// need.
type Authenticator interface {
	LinkStart(ctx context.Context, externalID, workEmail, username string) (string, error)
	Verify(ctx context.Context, externalID, code string) error
	Unlink(ctx context.Context, externalID string) error
}

// Surface is the narrow slice of agent.Surface every non-command message
// is handed to.
type Surface interface {
	Handle(ctx context.Context, externalID, message string) (string, error)
}

var sixDigitCode = regexp.MustCompile(`^\d{6}$`)

// Bot polls Telegram updates and dispatches them to the OTP Authenticator
// or the Agent Surface.
type Bot struct {
	api  *tgbotapi.BotAPI
	auth Authenticator
	surf Surface
}

// New constructs a Bot authorized with token against the OTP Authenticator
// and Agent Surface.
func New(token string, auth Authenticator, surf Surface) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	slog.Info("telegram: authorized", "username", api.Self.UserName)
	return &Bot{api: api, auth: auth, surf: surf}, nil
}

// Start polls for updates until ctx is canceled, dispatching each incoming
// message in its own goroutine so a slow ERP/LLM call on one chat doesn't
// stall delivery to others.
func (b *Bot) Start(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.api.GetUpdatesChan(cfg)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		go b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	externalID := strconv.FormatInt(msg.Chat.ID, 10)
	text := strings.TrimSpace(msg.Text)

	var reply string
	switch {
	case strings.HasPrefix(text, "/link"):
		reply = b.handleLink(ctx, externalID, msg.From.UserName, text)
	case strings.HasPrefix(text, "/unlink"):
		reply = b.handleUnlink(ctx, externalID)
	case sixDigitCode.MatchString(text):
		reply = b.handleVerify(ctx, externalID, text)
	default:
		response, err := b.surf.Handle(ctx, externalID, text)
		if err != nil {
			slog.Error("telegram: agent surface error", "chat_id", externalID, "error", err)
			reply = "Sorry, something went wrong handling that. Please try again."
		} else {
			reply = response
		}
	}

	b.send(msg.Chat.ID, reply)
}

func (b *Bot) handleLink(ctx context.Context, externalID, username, text string) string {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "Usage: /link <work email>"
	}
	code, err := b.auth.LinkStart(ctx, externalID, fields[1], username)
	if err != nil {
		slog.Error("telegram: link start failed", "chat_id", externalID, "error", err)
		return "Couldn't start the link process for that email. Check it and try again."
	}
	if code != "" {
		return fmt.Sprintf("Demo mode: your verification code is %s. Reply with it to finish linking.", code)
	}
	return "A verification code was emailed to you. Reply with it to finish linking."
}

func (b *Bot) handleVerify(ctx context.Context, externalID, code string) string {
	if err := b.auth.Verify(ctx, externalID, code); err != nil {
		return "That code didn't work: " + err.Error()
	}
	return "You're linked. Ask me anything about your leave, tasks, payslips, or attendance."
}

func (b *Bot) handleUnlink(ctx context.Context, externalID string) string {
	if err := b.auth.Unlink(ctx, externalID); err != nil {
		slog.Error("telegram: unlink failed", "chat_id", externalID, "error", err)
		return "Couldn't unlink your account right now."
	}
	return "Your account has been unlinked."
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("telegram: send failed", "chat_id", chatID, "error", err)
	}
}
