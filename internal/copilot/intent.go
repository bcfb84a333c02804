package copilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/copilotd/internal/oracle"
)

// Intent labels the router recognizes. The set is advisory: classifier
// output is stored verbatim and anything unrecognized routes to the
// analyst branch.
const (
	intentGreeting = "greeting"
	intentModify   = "modify"
	intentAction   = "action"
	intentScenario = "scenario"
)

// Handler identifiers recorded in AgentHistory, in execution order.
const (
	agentRouter     = "router"
	agentGreeting   = "greeting"
	agentAnalyst    = "analyst"
	agentController = "controller"
	agentScenario   = "scenario_runner"
)

// classifyIntent asks the model for a category label, using the full
// conversation as context. The trimmed, lowercased response is taken
// verbatim as the label: it is never validated against the taxonomy, and
// unrecognized labels silently fall through to the analyst branch when
// routed.
func (w *Workflow) classifyIntent(ctx context.Context, state *TurnState) error {
	prompt := make([]oracle.Message, 0, len(state.Messages)+1)
	prompt = append(prompt, oracle.Message{Role: oracle.RoleSystem, Content: intentPrompt})
	prompt = append(prompt, conversationMessages(state.Messages)...)

	result, err := w.generate(ctx, agentRouter, prompt)
	if err != nil {
		return fmt.Errorf("classifying intent: %w", err)
	}

	state.Intent = strings.ToLower(strings.TrimSpace(result.Text))
	state.AgentHistory = append(state.AgentHistory, agentRouter)
	return nil
}

// routeIntent selects the branch handler for a classified label.
// The routing function is total: greeting, modify/action, and scenario
// map to their handlers, everything else lands on the analyst.
func (w *Workflow) routeIntent(intent string) (string, handlerFunc) {
	switch intent {
	case intentGreeting:
		return agentGreeting, w.handleGreeting
	case intentModify, intentAction:
		return agentController, w.handleController
	case intentScenario:
		return agentScenario, w.handleScenario
	default:
		return agentAnalyst, w.handleAnalyst
	}
}

// conversationMessages converts the conversation record into role-tagged
// prompt messages. Entries with roles other than user or assistant are
// dropped.
func conversationMessages(messages []Message) []oracle.Message {
	out := make([]oracle.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, oracle.Message{Role: oracle.RoleUser, Content: m.Content})
		case RoleAssistant:
			out = append(out, oracle.Message{Role: oracle.RoleAssistant, Content: m.Content})
		}
	}
	return out
}
