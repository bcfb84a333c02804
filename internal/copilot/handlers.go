package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/oracle"
)

// handleGreeting greets the user. Calculator state content is ignored
// beyond the persona's claim of visibility; only the latest user message
// is sent.
func (w *Workflow) handleGreeting(ctx context.Context, state *TurnState) error {
	result, err := w.generate(ctx, agentGreeting, []oracle.Message{
		{Role: oracle.RoleSystem, Content: greetingPrompt},
		{Role: oracle.RoleUser, Content: state.lastContent()},
	})
	if err != nil {
		return fmt.Errorf("greeting handler: %w", err)
	}

	state.appendAssistant(result.Text)
	state.AgentHistory = append(state.AgentHistory, agentGreeting)
	return nil
}

// handleAnalyst answers data questions with the serialized calculator
// state embedded in the system prompt and the entire conversation as
// context. This is the default branch for any intent the router does not
// specifically recognize.
func (w *Workflow) handleAnalyst(ctx context.Context, state *TurnState) error {
	prompt := make([]oracle.Message, 0, len(state.Messages)+1)
	prompt = append(prompt, oracle.Message{Role: oracle.RoleSystem, Content: analystPrompt(state.CalculatorState)})
	prompt = append(prompt, conversationMessages(state.Messages)...)

	result, err := w.generate(ctx, agentAnalyst, prompt)
	if err != nil {
		return fmt.Errorf("analyst handler: %w", err)
	}

	state.appendAssistant(result.Text)
	state.AgentHistory = append(state.AgentHistory, agentAnalyst)
	return nil
}

// handleController translates a modification request into a structured
// patch. A completion fault aborts the turn, but malformed model output
// does not: the branch apologizes, leaves the pending patch list empty,
// and the turn completes normally.
func (w *Workflow) handleController(ctx context.Context, state *TurnState) error {
	result, err := w.generate(ctx, agentController, []oracle.Message{
		{Role: oracle.RoleSystem, Content: controllerPrompt(state.CalculatorState)},
		{Role: oracle.RoleUser, Content: state.lastContent()},
	})
	if err != nil {
		return fmt.Errorf("controller handler: %w", err)
	}

	patch, parseErr := parsePatch(result.Text)
	if parseErr != nil {
		w.logger.Warn("controller output did not parse as a patch",
			zap.Error(parseErr),
			zap.String("session_id", state.SessionID),
		)
		state.appendAssistant(controllerApology)
	} else {
		state.PendingActions = append(state.PendingActions, patch)
		state.appendAssistant(controllerConfirmation)
	}

	state.AgentHistory = append(state.AgentHistory, agentController)
	return nil
}

// handleScenario contrasts the current configuration against a proposed
// one. The latest user message carries the what-if question.
func (w *Workflow) handleScenario(ctx context.Context, state *TurnState) error {
	result, err := w.generate(ctx, agentScenario, []oracle.Message{
		{Role: oracle.RoleSystem, Content: scenarioPrompt(state.CalculatorState)},
		{Role: oracle.RoleUser, Content: state.lastContent()},
	})
	if err != nil {
		return fmt.Errorf("scenario handler: %w", err)
	}

	state.appendAssistant(result.Text)
	state.AgentHistory = append(state.AgentHistory, agentScenario)
	return nil
}

// parsePatch strips markdown code fences and decodes the patch object.
// Models wrap JSON in fences despite instructions not to.
func parsePatch(raw string) (Patch, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var patch Patch
	if err := json.Unmarshal([]byte(cleaned), &patch); err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}
	return patch, nil
}
