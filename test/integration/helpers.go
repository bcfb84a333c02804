package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/copilot"
	api "github.com/fyrsmithlabs/copilotd/internal/http"
	"github.com/fyrsmithlabs/copilotd/internal/oracle"
)

// stubOracle returns scripted responses in call order. Call i fails with
// errs[i] when set, otherwise answers responses[i]. Safe for concurrent
// use so socket and chat tests can share one server.
type stubOracle struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *stubOracle) Generate(_ context.Context, _ []oracle.Message) (*oracle.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return &oracle.Result{Text: s.responses[i]}, nil
	}
	return nil, fmt.Errorf("stub oracle exhausted after %d calls", i)
}

// startTestServer wires a full workflow onto a live listener backed by
// the scripted completion client.
func startTestServer(t *testing.T, stub *stubOracle) *httptest.Server {
	t.Helper()

	workflow, err := copilot.NewWorkflow(stub, zap.NewNop())
	require.NoError(t, err, "Should create workflow")

	srv, err := api.NewServer(workflow, zap.NewNop(), nil)
	require.NoError(t, err, "Should create server")

	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

// postChat sends one chat turn over the wire and decodes the reply.
func postChat(t *testing.T, ts *httptest.Server, body map[string]any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err, "Should marshal request body")

	resp, err := http.Post(ts.URL+"/api/copilot/chat", "application/json", bytes.NewReader(raw))
	require.NoError(t, err, "Should reach chat endpoint")
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded), "Should decode response body")
	return resp.StatusCode, decoded
}

// chatRequest builds the canonical request payload used across tests.
func chatRequest(message string) map[string]any {
	return map[string]any{
		"message": message,
		"calculator_state": map[string]any{
			"agentCount":      40,
			"recoveryRate":    0.18,
			"peakUtilization": 95,
		},
		"session_id": "integration-session",
		"user_id":    "integration-user",
	}
}
