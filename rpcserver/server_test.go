package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/taskstore"
	"github.com/cyberelf/ranch/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoAgent struct {
	profile a2a.AgentProfile
	delay   time.Duration
	fail    error
}

func (e *echoAgent) Profile(ctx context.Context) (a2a.AgentProfile, error) {
	return e.profile, nil
}

func (e *echoAgent) Process(ctx context.Context, m a2a.Message) (a2a.Message, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.fail != nil {
		return a2a.Message{}, e.fail
	}
	return a2a.NewAgentText("reply-1", "echo: "+m.Text()), nil
}

func (e *echoAgent) HealthCheck(ctx context.Context) bool { return true }

func post(t *testing.T, srv *Server, req transport.Request) transport.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	var resp transport.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMessageSendReturnsMessageOnFastCompletion(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, SyncTimeout: time.Second})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "message/send", Params: map[string]any{
		"message": a2a.NewUserText("u1", "hi"),
	}})
	require.Nil(t, resp.Error)
	var msg a2a.Message
	require.NoError(t, json.Unmarshal(resp.Result, &msg))
	assert.Equal(t, "echo: hi", msg.Text())
}

func TestMessageSendReturnsTaskWhenSlow(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}, delay: 100 * time.Millisecond}, SyncTimeout: 10 * time.Millisecond})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "message/send", Params: map[string]any{
		"message": a2a.NewUserText("u1", "hi"),
	}})
	require.Nil(t, resp.Error)
	var task a2a.Task
	require.NoError(t, json.Unmarshal(resp.Result, &task))
	assert.NotEmpty(t, task.ID)
	assert.Contains(t, []a2a.TaskState{a2a.TaskStateQueued, a2a.TaskStateWorking}, task.Status.State)
}

func TestTaskGetAndStatusAfterCompletion(t *testing.T) {
	store := taskstore.New()
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, Store: store, SyncTimeout: time.Second})

	task := store.Create("ctx-1")
	srv.runTask(task.ID, a2a.NewUserText("u1", "hi"))

	statusResp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 2, Method: "task/status", Params: map[string]any{"taskId": task.ID}})
	require.Nil(t, statusResp.Error)
	var status a2a.TaskStatus
	require.NoError(t, json.Unmarshal(statusResp.Result, &status))
	assert.Equal(t, a2a.TaskStateCompleted, status.State)

	getResp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 3, Method: "task/get", Params: map[string]any{"taskId": task.ID}})
	require.Nil(t, getResp.Error)
	var got a2a.Task
	require.NoError(t, json.Unmarshal(getResp.Result, &got))
	require.NotNil(t, got.Result)
	assert.Equal(t, "echo: hi", got.Result.Text())
}

func TestTaskCancelNonTerminal(t *testing.T) {
	store := taskstore.New()
	task := store.Create("ctx-1")
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, Store: store})

	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "task/cancel", Params: map[string]any{"taskId": task.ID}})
	require.Nil(t, resp.Error)
	var status a2a.TaskStatus
	require.NoError(t, json.Unmarshal(resp.Result, &status))
	assert.Equal(t, a2a.TaskStateCancelled, status.State)
}

func TestTaskGetUnknownIDReturnsTaskNotFound(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "task/get", Params: map[string]any{"taskId": "missing"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32003, resp.Error.Code)
}

func TestAgentCardMethodAndDiscoveryEndpointAgree(t *testing.T) {
	profile := a2a.AgentProfile{ID: "team-1", Name: "Team One", Capabilities: []a2a.AgentCapability{{Name: a2a.ClientRoutingExtensionURI}}}
	srv := New(Config{Agent: &echoAgent{profile: profile}})

	rpcResp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "agent/card"})
	require.Nil(t, rpcResp.Error)
	var cardFromRPC a2a.AgentCard
	require.NoError(t, json.Unmarshal(rpcResp.Result, &cardFromRPC))
	assert.True(t, cardFromRPC.HasExtension(a2a.ClientRoutingExtensionURI))
	require.Len(t, cardFromRPC.Capabilities.Extensions, 1)

	r := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card.json", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	var cardFromDiscovery a2a.AgentCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cardFromDiscovery))
	assert.Equal(t, cardFromRPC.ID, cardFromDiscovery.ID)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "does/not-exist"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMalformedEnvelopeReturnsParseError(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}})
	r := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	var resp transport.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestMissingJSONRPCVersionReturnsInvalidRequest(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}})
	resp := post(t, srv, transport.Request{ID: 1, Method: "agent/card"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestRequiredExtensionRejectsRequestMissingHeader(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, RequiredExtensions: []string{"urn:example:must-declare"}})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "message/send", Params: map[string]any{
		"message": a2a.NewUserText("u1", "hi"),
	}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32006, resp.Error.Code)
}

func TestRequiredExtensionAllowsRequestThatDeclaresIt(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, RequiredExtensions: []string{"urn:example:must-declare"}})
	body, err := json.Marshal(transport.Request{JSONRPC: "2.0", ID: 1, Method: "message/send", Params: map[string]any{
		"message": a2a.NewUserText("u1", "hi"),
	}})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	r.Header.Set("A2A-Extensions", "urn:example:must-declare")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	var resp transport.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestRequiredExtensionDoesNotBlockAgentCardDiscovery(t *testing.T) {
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}}, RequiredExtensions: []string{"urn:example:must-declare"}})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "agent/card"})
	require.Nil(t, resp.Error)
	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal(resp.Result, &card))
	require.Len(t, card.Capabilities.Extensions, 1)
	assert.True(t, card.Capabilities.Extensions[0].Required)
}

func TestAgentProcessErrorSurfacesAsFailedTask(t *testing.T) {
	store := taskstore.New()
	srv := New(Config{Agent: &echoAgent{profile: a2a.AgentProfile{ID: "a1"}, fail: a2a.AgentNotFoundError("ghost")}, Store: store, SyncTimeout: 50 * time.Millisecond})
	resp := post(t, srv, transport.Request{JSONRPC: "2.0", ID: 1, Method: "message/send", Params: map[string]any{
		"message": a2a.NewUserText("u1", "hi"),
	}})
	require.Nil(t, resp.Error)
	var task a2a.Task
	require.NoError(t, json.Unmarshal(resp.Result, &task))

	time.Sleep(20 * time.Millisecond)
	got, ok := store.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
}
