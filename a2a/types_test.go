package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTripText(t *testing.T) {
	msg := NewUserText("m1", "hello")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"kind"`)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Parts, 1)
	tp, ok := got.Parts[0].(TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello", tp.Text)

	data2, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(data2))
}

func TestPartRoundTripFileAndData(t *testing.T) {
	msg := Message{
		ID:   "m2",
		Role: RoleAgent,
		Parts: []Part{
			FilePart{URI: "https://example.com/a.png", MimeType: "image/png", Name: "a.png"},
			DataPart{Data: json.RawMessage(`{"x":1}`), MimeType: "application/json"},
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Parts, 2)
	fp, ok := got.Parts[0].(FilePart)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.png", fp.URI)
	dp, ok := got.Parts[1].(DataPart)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(dp.Data))
}

func TestLegacyKindTagTolerated(t *testing.T) {
	raw := []byte(`{"id":"m3","role":"user","parts":[{"kind":"text","text":"hi"}]}`)
	var got Message
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Parts, 1)
	tp, ok := got.Parts[0].(TextPart)
	require.True(t, ok)
	assert.Equal(t, "hi", tp.Text)

	// A fresh serialization must not re-emit the legacy tag.
	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"kind"`)
}

func TestTaskStateTransitions(t *testing.T) {
	assert.True(t, TaskStateQueued.CanTransitionTo(TaskStateWorking))
	assert.True(t, TaskStateWorking.CanTransitionTo(TaskStateCompleted))
	assert.False(t, TaskStateCompleted.CanTransitionTo(TaskStateWorking))
	assert.False(t, TaskStateFailed.CanTransitionTo(TaskStateCancelled))
	assert.True(t, TaskStateCompleted.IsTerminal())
	assert.False(t, TaskStateQueued.IsTerminal())
}

func TestSendResponseMarshalsUnwrapped(t *testing.T) {
	msg := NewAgentText("m4", "hi")
	resp := SendResponse{Message: &msg}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"agent"`)

	task := &Task{ID: "t1", Status: TaskStatus{State: TaskStateQueued}}
	resp2 := SendResponse{Task: task}
	data2, err := json.Marshal(resp2)
	require.NoError(t, err)
	assert.Contains(t, string(data2), `"id":"t1"`)
}

func TestClientRoutingRequestResponseRoundTrip(t *testing.T) {
	msg := NewAgentText("m5", "routing?")
	req := ClientRoutingRequest{
		AgentCards: []SimplifiedAgentCard{{ID: "b", Name: "B", SupportsClientRouting: false}},
		Sender:     "user",
	}
	withReq := WithClientRoutingRequest(msg, req)
	assert.Contains(t, withReq.Extensions, ClientRoutingExtensionURI)

	data, err := json.Marshal(withReq)
	require.NoError(t, err)
	var roundTripped Message
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	resp := Message{
		ID:   "m6",
		Role: RoleAgent,
		Parts: []Part{TextPart{Text: "ok"}},
		Metadata: map[string]any{
			ClientRoutingExtensionURI: ClientRoutingResponse{Recipient: "b", AllowRevisit: true},
		},
	}
	rdata, err := json.Marshal(resp)
	require.NoError(t, err)
	var gotResp Message
	require.NoError(t, json.Unmarshal(rdata, &gotResp))
	parsed, ok := ParseClientRoutingResponse(gotResp)
	require.True(t, ok)
	assert.Equal(t, "b", parsed.Recipient)
	assert.True(t, parsed.AllowRevisit)
}

func TestParseClientRoutingResponseAbsentOrMalformed(t *testing.T) {
	msg := NewUserText("m7", "plain")
	_, ok := ParseClientRoutingResponse(msg)
	assert.False(t, ok)

	msg.Metadata = map[string]any{ClientRoutingExtensionURI: "not-an-object"}
	_, ok = ParseClientRoutingResponse(msg)
	assert.False(t, ok)
}

func TestScrubClientRoutingMetadataPreservesOtherKeys(t *testing.T) {
	msg := Message{
		ID:   "m8",
		Role: RoleAgent,
		Parts: []Part{TextPart{Text: "x"}},
		Metadata: map[string]any{
			ClientRoutingExtensionURI: ClientRoutingResponse{Recipient: "user"},
			"trace_id":                "abc",
		},
	}
	scrubbed := ScrubClientRoutingMetadata(msg)
	_, present := scrubbed.Metadata[ClientRoutingExtensionURI]
	assert.False(t, present)
	assert.Equal(t, "abc", scrubbed.Metadata["trace_id"])
}

func TestScrubClientRoutingMetadataStripsExtensionURI(t *testing.T) {
	msg := Message{
		ID:         "m9",
		Role:       RoleAgent,
		Parts:      []Part{TextPart{Text: "x"}},
		Extensions: []string{ClientRoutingExtensionURI, "https://example.com/other"},
	}
	scrubbed := ScrubClientRoutingMetadata(msg)
	assert.NotContains(t, scrubbed.Extensions, ClientRoutingExtensionURI)
	assert.Contains(t, scrubbed.Extensions, "https://example.com/other")
}

func TestAgentProfileHasExtension(t *testing.T) {
	p := AgentProfile{Capabilities: []AgentCapability{{Name: ClientRoutingExtensionURI}}}
	assert.True(t, p.HasExtension(ClientRoutingExtensionURI))
	assert.False(t, p.HasExtension("https://example.com/other"))
}
