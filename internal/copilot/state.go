// Package copilot implements the intent-routing workflow for the
// Collections ROI Copilot.
//
// One turn flows through exactly two nodes: an intent classifier that
// labels the user's latest request, and one of four branch handlers
// (greeting, analyst, controller, scenario) selected from that label.
// Each handler makes a single completion call and appends one assistant
// message to the conversation; the controller branch additionally emits
// a structured patch against the caller's calculator state.
package copilot

// Role tags a conversation message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation record.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CalculatorState is the opaque field mapping describing the external
// financial model. Handlers read it for prompt construction; nothing in
// the workflow mutates it.
type CalculatorState map[string]any

// Patch maps calculator field names to new values. The caller applies it
// to the external calculator; the workflow performs no validation of the
// field names or values beyond requiring a JSON object.
type Patch map[string]any

// TurnState is the working state threaded through one dispatch.
//
// It is built fresh for every turn and owned exclusively by that turn:
// nothing here is persisted or shared across requests, so no locking is
// needed. Messages grows by exactly one assistant entry per completed
// turn. Intent is written once by the classifier and only read
// afterwards. PendingActions holds at most one patch, present only when
// the controller branch parsed the model output successfully.
type TurnState struct {
	Messages        []Message
	CalculatorState CalculatorState
	Intent          string
	PendingActions  []Patch
	AgentHistory    []string
	SessionID       string
	UserID          string
}

// NewTurnState builds the working state for one turn from the caller's
// prior history plus the new user message.
func NewTurnState(sessionID, userID string, history []Message, message string, calc CalculatorState) *TurnState {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: message})

	return &TurnState{
		Messages:        messages,
		CalculatorState: calc,
		SessionID:       sessionID,
		UserID:          userID,
	}
}

// Reply returns the latest message content. After a completed turn this
// is the assistant's response.
func (s *TurnState) Reply() string {
	return s.lastContent()
}

// lastContent returns the content of the most recent message.
func (s *TurnState) lastContent() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}

// appendAssistant appends the handler's reply to the conversation.
func (s *TurnState) appendAssistant(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}
