// Package a2a implements the Agent-to-Agent (A2A) protocol
// Specification: https://a2a-protocol.org/
package a2a

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// MESSAGE & PARTS
// ============================================================================

// Role identifies who authored a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is the unit of communication between a caller, the Router,
// and member agents.
type Message struct {
	ID         string         `json:"id"`
	ContextID  string         `json:"contextId,omitempty"`
	Role       Role           `json:"role"`
	Parts      []Part         `json:"parts"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Extensions []string       `json:"extensions,omitempty"`
}

// NewUserText builds a single-part user Message.
func NewUserText(id, text string) Message {
	return Message{ID: id, Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAgentText builds a single-part agent Message.
func NewAgentText(id, text string) Message {
	return Message{ID: id, Role: RoleAgent, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates every TextPart's content; it is what the Router's
// loop-detection fingerprint (§4.5 step 4) hashes.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// Part is a tagged sum over TextPart, FilePart, and DataPart.
// Serialization is untagged: the wire shape carries no "kind"/"type"
// discriminator, and readers disambiguate structurally (§4.1).
type Part interface {
	isPart()
}

// TextPart carries plain text content.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// FilePart carries a file either inline (Bytes) or by reference (URI).
type FilePart struct {
	URI      string `json:"fileUri,omitempty"`
	Bytes    []byte `json:"bytes,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (FilePart) isPart() {}

// DataPart carries an arbitrary structured JSON payload.
type DataPart struct {
	Data     json.RawMessage `json:"data"`
	MimeType string          `json:"mimeType,omitempty"`
}

func (DataPart) isPart() {}

// wirePart is the union of fields any Part variant may carry; it is the
// intermediate shape used to structurally disambiguate an incoming
// object before lifting it into a concrete Part.
type wirePart struct {
	Kind     string          `json:"kind,omitempty"` // legacy tag, read-only
	Text     string          `json:"text,omitempty"`
	URI      string          `json:"fileUri,omitempty"`
	Bytes    []byte          `json:"bytes,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Name     string          `json:"name,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func marshalPart(p Part) (json.RawMessage, error) {
	switch v := p.(type) {
	case TextPart:
		return json.Marshal(wirePart{Text: v.Text})
	case FilePart:
		return json.Marshal(wirePart{URI: v.URI, Bytes: v.Bytes, MimeType: v.MimeType, Name: v.Name})
	case DataPart:
		return json.Marshal(wirePart{Data: v.Data, MimeType: v.MimeType})
	default:
		return nil, fmt.Errorf("a2a: unknown part type %T", p)
	}
}

func unmarshalPart(raw json.RawMessage) (Part, error) {
	var w wirePart
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("a2a: part: %w", err)
	}
	if w.Kind != "" {
		return partFromKind(w.Kind, w), nil
	}
	switch {
	case w.Data != nil:
		return DataPart{Data: w.Data, MimeType: w.MimeType}, nil
	case w.URI != "" || len(w.Bytes) > 0:
		return FilePart{URI: w.URI, Bytes: w.Bytes, MimeType: w.MimeType, Name: w.Name}, nil
	default:
		return TextPart{Text: w.Text}, nil
	}
}

func partFromKind(kind string, w wirePart) Part {
	switch kind {
	case "file":
		return FilePart{URI: w.URI, Bytes: w.Bytes, MimeType: w.MimeType, Name: w.Name}
	case "data":
		return DataPart{Data: w.Data, MimeType: w.MimeType}
	default:
		return TextPart{Text: w.Text}
	}
}

// MarshalJSON gives Message untagged Part encoding; the stdlib cannot
// marshal an interface-typed slice field on its own.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	parts := make([]json.RawMessage, len(m.Parts))
	for i, p := range m.Parts {
		raw, err := marshalPart(p)
		if err != nil {
			return nil, err
		}
		parts[i] = raw
	}
	return json.Marshal(struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}{alias: alias(m), Parts: parts})
}

// UnmarshalJSON implements structural Part disambiguation for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Message(aux.alias)
	m.Parts = make([]Part, len(aux.Parts))
	for i, raw := range aux.Parts {
		p, err := unmarshalPart(raw)
		if err != nil {
			return err
		}
		m.Parts[i] = p
	}
	return nil
}

// ============================================================================
// TASK - Unit of Asynchronous Work
// ============================================================================

// TaskState is the lifecycle state of a Task. The lifecycle is a DAG:
// any non-terminal state may move to working/completed/failed/cancelled;
// terminal states (completed, failed, cancelled) are sticky.
type TaskState string

const (
	TaskStateQueued    TaskState = "queued"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// IsTerminal reports whether s has no outbound transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal transition from s.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case TaskStateWorking, TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// TaskStatus is the lightweight, frequently-polled view of a Task.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is one output produced by an agent in the course of a Task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON gives Artifact the same untagged Part encoding as Message.
func (a Artifact) MarshalJSON() ([]byte, error) {
	type alias Artifact
	parts := make([]json.RawMessage, len(a.Parts))
	for i, p := range a.Parts {
		raw, err := marshalPart(p)
		if err != nil {
			return nil, err
		}
		parts[i] = raw
	}
	return json.Marshal(struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}{alias: alias(a), Parts: parts})
}

// UnmarshalJSON mirrors Message.UnmarshalJSON for Artifact.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	type alias Artifact
	aux := struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Artifact(aux.alias)
	a.Parts = make([]Part, len(aux.Parts))
	for i, raw := range aux.Parts {
		p, err := unmarshalPart(raw)
		if err != nil {
			return err
		}
		a.Parts[i] = p
	}
	return nil
}

// Task is the record of asynchronous work produced in response to a
// Message. Task ids are globally unique (UUIDs, §3.5).
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId,omitempty"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Result    *Message   `json:"result,omitempty"`
	History   []Message  `json:"history,omitempty"`
}

// SendResponse is the result of message/send: either the team completed
// synchronously (Message) or it did not (Task, state queued/working).
type SendResponse struct {
	Message *Message
	Task    *Task
}

// MarshalJSON emits whichever of Message/Task is set, unwrapped.
func (r SendResponse) MarshalJSON() ([]byte, error) {
	if r.Task != nil {
		return json.Marshal(r.Task)
	}
	return json.Marshal(r.Message)
}

// ============================================================================
// AGENT CARD - Agent Discovery & Capability Advertisement
// ============================================================================

// AgentCapability names one thing an agent can do. By convention an
// extension a team/agent supports is also represented as a capability
// whose Name is the extension URI (this is what the Router's capability
// probe, §4.5 step 5, checks via AgentProfile.HasExtension).
type AgentCapability struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// AgentSkill is a discoverable tag surfaced on an AgentCard.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentExtension declares one A2A protocol extension an agent supports,
// surfaced in AgentCard.Capabilities.Extensions (§3.3, §6.2).
type AgentExtension struct {
	URI         string         `json:"uri"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required"`
	Params      map[string]any `json:"params,omitempty"`
}

// AgentProfile is the identity + capability summary used internally and
// embedded inside an AgentCard (§3.3).
type AgentProfile struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Version      string            `json:"version,omitempty"`
	Provider     string            `json:"provider,omitempty"`
	Capabilities []AgentCapability `json:"capabilities,omitempty"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// HasExtension reports whether the profile declares support for the
// extension identified by uri.
func (p AgentProfile) HasExtension(uri string) bool {
	for _, c := range p.Capabilities {
		if c.Name == uri {
			return true
		}
	}
	return false
}

// AuthConfig describes one way a caller may authenticate to an agent.
type AuthConfig struct {
	Type   string `json:"type"` // "bearer", "apiKey", "oauth2"
	Header string `json:"header,omitempty"`
}

// AgentCapabilities groups the declarative capability surface of an
// AgentCard: streaming support and declared protocol extensions.
type AgentCapabilities struct {
	Streaming  bool             `json:"streaming"`
	Extensions []AgentExtension `json:"extensions,omitempty"`
}

// AgentCard is the discovery document: an AgentProfile plus transport,
// auth, rate-limit, and extension metadata (§3.3).
type AgentCard struct {
	AgentProfile
	Transports   []string           `json:"transports,omitempty"`
	Auth         []AuthConfig       `json:"auth,omitempty"`
	RateLimits   map[string]any     `json:"rateLimits,omitempty"`
	Capabilities AgentCapabilities  `json:"capabilities"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
}

// HasExtension reports whether the card declares the extension
// identified by uri, either as a capability of its embedded profile or
// in Capabilities.Extensions. A card decoded from JSON carries only the
// latter: its "capabilities" object takes the wire name of the
// profile's capability list.
func (c AgentCard) HasExtension(uri string) bool {
	if c.AgentProfile.HasExtension(uri) {
		return true
	}
	for _, ext := range c.Capabilities.Extensions {
		if ext.URI == uri {
			return true
		}
	}
	return false
}

// ============================================================================
// CLIENT-ROUTING EXTENSION (§3.4, §4.5, §6.2)
// ============================================================================

// ClientRoutingExtensionURI identifies the client-routing protocol
// extension. Versioned: a breaking change mints a new URI.
const ClientRoutingExtensionURI = "https://ranch.woi.dev/extensions/client-routing/v1"

// SimplifiedAgentCard is the lightweight peer view injected into
// outbound messages for routing-capable agents; it carries no auth or
// rate-limit detail (§3.4, security considerations in §4.5).
type SimplifiedAgentCard struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	Capabilities          []string `json:"capabilities,omitempty"`
	SupportsClientRouting bool     `json:"supportsClientRouting"`
}

// ClientRoutingRequest is the Router→agent payload of the client-routing
// extension, keyed by ClientRoutingExtensionURI in message.metadata.
type ClientRoutingRequest struct {
	AgentCards []SimplifiedAgentCard `json:"agentCards"`
	Sender     string                `json:"sender"`
}

// ClientRoutingResponse is the agent→Router payload of the client-
// routing extension. Recipient is an agent id, "user", or "sender".
type ClientRoutingResponse struct {
	Recipient    string `json:"recipient"`
	Reason       string `json:"reason,omitempty"`
	AllowRevisit bool   `json:"allowRevisit,omitempty"`
}

// ParseClientRoutingResponse extracts and decodes the extension payload
// from a message's metadata, if present. A missing or malformed payload
// is reported via ok=false rather than an error: the Router treats both
// the same way, falling back to the default agent on the very first hop
// and terminating the route on every later hop (§4.5 steps 1 and 7).
func ParseClientRoutingResponse(m Message) (ClientRoutingResponse, bool) {
	var out ClientRoutingResponse
	if m.Metadata == nil {
		return out, false
	}
	raw, present := m.Metadata[ClientRoutingExtensionURI]
	if !present {
		return out, false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}
	if out.Recipient == "" {
		return out, false
	}
	return out, true
}

// WithClientRoutingRequest returns a copy of m carrying req in its
// metadata under ClientRoutingExtensionURI, with the URI appended to
// m.Extensions (§4.5 step 5).
func WithClientRoutingRequest(m Message, req ClientRoutingRequest) Message {
	out := m
	meta := make(map[string]any, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		meta[k] = v
	}
	meta[ClientRoutingExtensionURI] = req
	out.Metadata = meta
	out.Extensions = append(append([]string{}, m.Extensions...), ClientRoutingExtensionURI)
	return out
}

// ScrubClientRoutingMetadata removes any client-routing payload left on
// m by a previous hop — both the metadata entry and the URI's presence
// in m.Extensions — so that "agents receive only the data intended for
// them" (§4.5 step 5) and P3 holds unconditionally: a recipient that
// does not declare the extension must see neither the metadata key nor
// the URI in Extensions, even when the message arrives carrying it
// because an upstream agent "actively used" the extension (§3.1).
func ScrubClientRoutingMetadata(m Message) Message {
	_, hasMetadata := m.Metadata[ClientRoutingExtensionURI]
	hasExtension := containsString(m.Extensions, ClientRoutingExtensionURI)
	if !hasMetadata && !hasExtension {
		return m
	}
	out := m
	if hasMetadata {
		meta := make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			if k == ClientRoutingExtensionURI {
				continue
			}
			meta[k] = v
		}
		out.Metadata = meta
	}
	if hasExtension {
		exts := make([]string, 0, len(m.Extensions))
		for _, uri := range m.Extensions {
			if uri == ClientRoutingExtensionURI {
				continue
			}
			exts = append(exts, uri)
		}
		out.Extensions = exts
	}
	return out
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
