package rpcserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/transport"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeEnvelope(w, transport.Response{JSONRPC: "2.0", Error: &transport.RPCError{Code: codeParseError, Message: "failed to read request body"}})
		return
	}

	declared := parseExtensionsHeader(r.Header.Get("A2A-Extensions"))

	trimmed := bytesTrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []transport.Request
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			writeEnvelope(w, transport.Response{JSONRPC: "2.0", Error: &transport.RPCError{Code: codeParseError, Message: "malformed batch request"}})
			return
		}
		responses := make([]transport.Response, 0, len(batch))
		for _, req := range batch {
			responses = append(responses, s.dispatch(r.Context(), req, declared))
		}
		writeEnvelope(w, responses)
		return
	}

	var req transport.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		writeEnvelope(w, transport.Response{JSONRPC: "2.0", Error: &transport.RPCError{Code: codeParseError, Message: "malformed request"}})
		return
	}
	writeEnvelope(w, s.dispatch(r.Context(), req, declared))
}

// parseExtensionsHeader splits the comma-separated A2A-Extensions
// header into the set of extension URIs the caller declared.
func parseExtensionsHeader(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	uris := make([]string, 0, len(parts))
	for _, p := range parts {
		if uri := strings.TrimSpace(p); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isJSONSpace(b[start]) {
		start++
	}
	for end > start && isJSONSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (s *Server) dispatch(ctx context.Context, req transport.Request, declaredExtensions []string) transport.Response {
	resp := transport.Response{JSONRPC: "2.0", ID: req.ID}

	if req.JSONRPC != "2.0" || req.Method == "" {
		resp.Error = &transport.RPCError{Code: codeInvalidRequest, Message: "invalid request envelope"}
		return resp
	}

	// agent/card is exempt: a caller has to be able to discover which
	// extensions are required before it can declare them.
	if req.Method != "agent/card" {
		if rpcErr := s.checkRequiredExtensions(ctx, declaredExtensions); rpcErr != nil {
			resp.Error = rpcErr
			return resp
		}
	}

	params, err := json.Marshal(req.Params)
	if err != nil {
		resp.Error = &transport.RPCError{Code: codeInvalidParams, Message: "invalid params"}
		return resp
	}

	var result any
	var rpcErr *transport.RPCError

	switch req.Method {
	case "message/send":
		result, rpcErr = s.methodMessageSend(ctx, params)
	case "task/get":
		result, rpcErr = s.methodTaskGet(params)
	case "task/status":
		result, rpcErr = s.methodTaskStatus(params)
	case "task/cancel":
		result, rpcErr = s.methodTaskCancel(params)
	case "agent/card":
		result, rpcErr = s.methodAgentCard(ctx)
	default:
		resp.Error = &transport.RPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
		return resp
	}

	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &transport.RPCError{Code: -32603, Message: "failed to encode result"}
		return resp
	}
	resp.Result = raw
	return resp
}

func writeEnvelope(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// toRPCError converts a service-level error into the JSON-RPC error
// object, translating a2a.Error via its Code() (the -32001..-32007
// range) and collapsing anything else to Internal (-32603). Several
// kinds share a code (validation, max-hops-exceeded, routing-loop,
// cycle-detected all land on -32007), so the error's structured detail
// — kind, task id, agent id, extension uri — goes in Data, the only
// place a caller can actually tell them apart on the wire.
func toRPCError(err error) *transport.RPCError {
	if err == nil {
		return nil
	}
	if aerr, ok := err.(*a2a.Error); ok {
		return &transport.RPCError{Code: aerr.Code(), Message: aerr.Error(), Data: errorData(aerr)}
	}
	return &transport.RPCError{Code: -32603, Message: err.Error()}
}

// errorData builds the JSON-RPC error "data" payload from aerr's
// structured fields, omitting anything aerr didn't set.
func errorData(aerr *a2a.Error) map[string]string {
	data := map[string]string{"kind": string(aerr.Kind)}
	if aerr.TaskID != "" {
		data["task_id"] = aerr.TaskID
	}
	if aerr.AgentID != "" {
		data["agent_id"] = aerr.AgentID
	}
	if aerr.URI != "" {
		data["uri"] = aerr.URI
	}
	return data
}

type messageSendParams struct {
	Message a2a.Message `json:"message"`
}

type taskIDParams struct {
	TaskID string `json:"taskId"`
}

func (s *Server) methodMessageSend(ctx context.Context, raw json.RawMessage) (any, *transport.RPCError) {
	var p messageSendParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: "invalid message/send params"}
	}

	task := s.store.Create(p.Message.ContextID)
	go s.runTask(task.ID, p.Message)

	status, terminal := s.store.Wait(task.ID, s.syncTimeout)
	if terminal && status.State == a2a.TaskStateCompleted {
		full, _ := s.store.Get(task.ID)
		return a2a.SendResponse{Message: full.Result}, nil
	}
	full, ok := s.store.Get(task.ID)
	if !ok {
		return nil, &transport.RPCError{Code: -32603, Message: "task vanished from store"}
	}
	return a2a.SendResponse{Task: &full}, nil
}

// runTask drives the agent to completion in the background, recording
// the outcome in the task store. It is the bridge between the
// synchronous Agent.Process call and the asynchronous task/get,
// task/status, task/cancel view of the same work.
//
// The agent contract carries no task id (Process takes only a
// Message), so cancellation can't be delivered as a parameter; instead
// the context handed to Process carries a cancellation poller the
// Router checks between hops and the remote-agent client checks on
// every polling tick, the same way Team threads its own nested-team
// visited-set through context without touching the Agent signature.
func (s *Server) runTask(taskID string, msg a2a.Message) {
	if err := s.store.Transition(taskID, a2a.TaskStateWorking, nil); err != nil {
		s.logger.Error("rpcserver: failed to mark task working", "task", taskID, "error", err)
		return
	}
	ctx := a2a.WithTaskContext(context.Background(), taskID, func() bool { return s.store.IsCancelled(taskID) })
	response, err := s.agent.Process(ctx, msg)
	if err != nil {
		if s.store.IsCancelled(taskID) {
			return
		}
		if setErr := s.store.SetFailed(taskID, err.Error()); setErr != nil {
			s.logger.Error("rpcserver: failed to record task failure", "task", taskID, "error", setErr)
		}
		return
	}
	if s.store.IsCancelled(taskID) {
		return
	}
	if err := s.store.SetResult(taskID, response); err != nil {
		s.logger.Error("rpcserver: failed to record task result", "task", taskID, "error", err)
	}
}

func (s *Server) methodTaskGet(raw json.RawMessage) (any, *transport.RPCError) {
	var p taskIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.TaskID == "" {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: "invalid task/get params"}
	}
	task, ok := s.store.Get(p.TaskID)
	if !ok {
		return nil, toRPCError(a2a.TaskNotFoundError(p.TaskID))
	}
	return task, nil
}

func (s *Server) methodTaskStatus(raw json.RawMessage) (any, *transport.RPCError) {
	var p taskIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.TaskID == "" {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: "invalid task/status params"}
	}
	status, ok := s.store.Status(p.TaskID)
	if !ok {
		return nil, toRPCError(a2a.TaskNotFoundError(p.TaskID))
	}
	return status, nil
}

func (s *Server) methodTaskCancel(raw json.RawMessage) (any, *transport.RPCError) {
	var p taskIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.TaskID == "" {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: "invalid task/cancel params"}
	}
	status, _, err := s.store.Cancel(p.TaskID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return status, nil
}

func (s *Server) methodAgentCard(ctx context.Context) (any, *transport.RPCError) {
	card, err := s.buildAgentCard(ctx)
	if err != nil {
		return nil, toRPCError(err)
	}
	return card, nil
}

func (s *Server) handleAgentCardDiscovery(w http.ResponseWriter, r *http.Request) {
	card, err := s.buildAgentCard(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(toRPCError(err))
		return
	}
	writeEnvelope(w, card)
}

// checkRequiredExtensions rejects the request with ExtensionSupportRequired
// if the agent declares any required extension that declaredExtensions
// (parsed from the inbound A2A-Extensions header) doesn't include.
func (s *Server) checkRequiredExtensions(ctx context.Context, declaredExtensions []string) *transport.RPCError {
	card, err := s.buildAgentCard(ctx)
	if err != nil {
		return nil
	}
	declared := make(map[string]bool, len(declaredExtensions))
	for _, uri := range declaredExtensions {
		declared[uri] = true
	}
	for _, ext := range card.Capabilities.Extensions {
		if ext.Required && !declared[ext.URI] {
			return toRPCError(a2a.ExtensionSupportRequiredError(ext.URI))
		}
	}
	return nil
}

// buildAgentCard wraps the agent's AgentProfile with the transport and
// extension metadata a discovery document carries but a bare profile
// does not.
func (s *Server) buildAgentCard(ctx context.Context) (a2a.AgentCard, error) {
	profile, err := s.agent.Profile(ctx)
	if err != nil {
		return a2a.AgentCard{}, err
	}
	card := a2a.AgentCard{
		AgentProfile: profile,
		Transports:   []string{"jsonrpc2.0"},
		Capabilities: a2a.AgentCapabilities{Streaming: false},
	}
	if profile.HasExtension(a2a.ClientRoutingExtensionURI) {
		card.Capabilities.Extensions = append(card.Capabilities.Extensions, a2a.AgentExtension{
			URI:         a2a.ClientRoutingExtensionURI,
			Description: "dynamic client-side routing",
			Required:    false,
		})
	}
	for _, uri := range s.requiredExtensions {
		if uri == a2a.ClientRoutingExtensionURI {
			continue
		}
		card.Capabilities.Extensions = append(card.Capabilities.Extensions, a2a.AgentExtension{URI: uri, Required: true})
	}
	return card, nil
}
