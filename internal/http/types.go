// Package http provides the HTTP and WebSocket API for copilotd.
package http

import "github.com/fyrsmithlabs/copilotd/internal/copilot"

// ChatRequest is the request body for POST /api/copilot/chat.
//
// History carries the prior conversation so the stateless service can
// classify and answer follow-ups in context.
type ChatRequest struct {
	Message         string                  `json:"message"`
	CalculatorState copilot.CalculatorState `json:"calculator_state"`
	SessionID       string                  `json:"session_id"`
	UserID          string                  `json:"user_id"`
	History         []copilot.Message       `json:"history,omitempty"`
}

// ChatResponse is the response body for POST /api/copilot/chat.
type ChatResponse struct {
	Message           string          `json:"message"`
	CalculatorUpdates []copilot.Patch `json:"calculator_updates"`
	Artifacts         []Artifact      `json:"artifacts"`
}

// Artifact is a generated report attachment. No current branch produces
// artifacts; the field is part of the response contract for clients.
type Artifact map[string]any

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SyncEnvelope is one client frame on the sync socket.
type SyncEnvelope struct {
	Type  string                  `json:"type"`
	State copilot.CalculatorState `json:"state,omitempty"`
}

// SyncReply is one server frame on the sync socket.
type SyncReply struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sync frame types.
const (
	frameStateUpdate = "STATE_UPDATE"
	frameAck         = "ACK"
	frameSuggestion  = "PROACTIVE_SUGGESTION"
	frameError       = "ERROR"
)
