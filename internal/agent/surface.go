package agent

import (
	"context"
	"fmt"
	"unicode"

	"github.com/boarsvc/boar/internal/llm"
	"github.com/boarsvc/boar/internal/otp"
)

// Authenticator is the narrow slice of otp.Authenticator the Agent Surface
// needs: confirm the caller is bound before letting the model touch ERP
// data on their behalf, and the unlink tool.
type Authenticator interface {
	State(ctx context.Context, externalID string) (otp.State, error)
	Resolve(ctx context.Context, externalID string) (int64, error)
	Unlink(ctx context.Context, externalID string) error
}

// Orchestrator is the narrow slice of llm.Orchestrator the Agent Surface
// drives.
type Orchestrator interface {
	ToolCall(ctx context.Context, externalID, userMessage string, tools []llm.Tool, handlers map[string]llm.ToolHandler, context_ map[string]any) (string, error)
}

// notLinkedMessage is returned when a caller hasn't completed OTP binding
// yet; it's bilingual the same way odoo_mcp_server.py's daily_summary_prompt
// branches en/ar output.
const (
	notLinkedMessageEN = "Your account isn't linked yet. Use /link <work email> to get started."
	notLinkedMessageAR = "لم يتم ربط حسابك بعد. استخدم /link <البريد الإلكتروني> للبدء."
)

// Surface is the Agent Surface (spec.md §4.G): it verifies the caller is
// bound, resolves their employee id, and dispatches their message through
// the tool-calling Orchestrator with the full ERP tool catalog.
type Surface struct {
	Gateway      Gateway
	Orchestrator Orchestrator
	Auth         Authenticator
}

// NewSurface wires a Gateway, Orchestrator and Authenticator into a
// Surface.
func NewSurface(gw Gateway, orch Orchestrator, auth Authenticator) *Surface {
	return &Surface{Gateway: gw, Orchestrator: orch, Auth: auth}
}

// Handle runs one turn of the per-turn sequence (SPEC_FULL.md §11): verify
// bound, resolve employee id into context, invoke the tool-calling
// Orchestrator over the full registry. A caller who isn't bound gets a
// language-matched prompt to /link instead of reaching the model.
func (s *Surface) Handle(ctx context.Context, externalID, message string) (string, error) {
	state, err := s.Auth.State(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("agent: check binding: %w", err)
	}
	if state != otp.StateBound {
		if detectLanguage(message) == "ar" {
			return notLinkedMessageAR, nil
		}
		return notLinkedMessageEN, nil
	}

	employeeID, err := s.Auth.Resolve(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("agent: resolve employee: %w", err)
	}
	if employeeID == 0 {
		return notLinkedMessageEN, nil
	}

	tools, handlers := NewRegistry(s.Gateway, s.Auth, externalID)
	toolContext := map[string]any{"employee_id": employeeID, "language": detectLanguage(message)}

	return s.Orchestrator.ToolCall(ctx, externalID, message, tools, handlers, toolContext)
}

// detectLanguage is a minimal heuristic — the presence of any Arabic
// script rune — matching the only two languages odoo_mcp_server.py's
// prompts branch on (en/ar). A full language-ID model is out of scope.
func detectLanguage(message string) string {
	for _, r := range message {
		if unicode.Is(unicode.Arabic, r) {
			return "ar"
		}
	}
	return "en"
}
