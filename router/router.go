// Package router implements the Router state machine of §4.5: the
// dynamic, metadata-driven message-routing loop that decides, hop by
// hop, which member agent (or the user) receives the next message.
package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/observability"
	"github.com/cyberelf/ranch/registry"
)

// DefaultMaxRoutingHops is the hop-limit default of §3.4.
const DefaultMaxRoutingHops = 10

// Config configures a Router. A fresh Router (and therefore fresh
// Config-derived state) is constructed per Team.process call so that
// concurrent invocations never share sender-stack or hop-counter state
// (§5, "per-request state is not shared").
type Config struct {
	DefaultAgentID string
	MaxHops        int // defaults to DefaultMaxRoutingHops
	Registry       *registry.AgentRegistry
	Logger         *slog.Logger
}

// Router is the hop-by-hop routing state machine of §4.5. It is not
// safe for concurrent Route calls on the same instance — callers
// (the Team) construct one Router per inbound message.
type Router struct {
	defaultAgentID string
	maxHops        int
	registry       *registry.AgentRegistry
	logger         *slog.Logger
	tracer         *observability.Tracer

	senderStack  []string
	fingerprints map[string]int
}

// New constructs a Router from cfg.
func New(cfg Config) *Router {
	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxRoutingHops
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger("router")
	}
	return &Router{
		defaultAgentID: cfg.DefaultAgentID,
		maxHops:        maxHops,
		registry:       cfg.Registry,
		logger:         logger,
		tracer:         observability.NewTracer("github.com/cyberelf/ranch/router"),
		fingerprints:   make(map[string]int),
	}
}

// Route runs the hop loop of §4.5 starting from inbound (sender
// "user") until a terminal decision or a safety limit is reached.
func (r *Router) Route(ctx context.Context, inbound a2a.Message) (a2a.Message, error) {
	current := inbound
	hop := 0

	for {
		if a2a.IsCancelled(ctx) {
			taskID, _ := a2a.TaskIDFromContext(ctx)
			return a2a.Message{}, a2a.TaskCancelledError(taskID)
		}

		decision := r.pickRecipient(current, hop)
		if decision.terminate {
			r.logger.Info("router: terminating", "hop", hop, "reason", "recipient=user")
			return a2a.ScrubClientRoutingMetadata(current), nil
		}

		agent, ok := r.registry.Get(decision.recipient)
		profile, profileOK := r.registry.Profile(decision.recipient)
		if !ok || !profileOK {
			return a2a.Message{}, a2a.AgentNotFoundError(decision.recipient)
		}

		if hop >= r.maxHops {
			return a2a.Message{}, &a2a.Error{Kind: a2a.ErrMaxHopsExceeded, Message: "max routing hops exceeded", AgentID: decision.recipient}
		}

		fp := fingerprint(decision.recipient, current.Text())
		if r.fingerprints[fp] >= 1 && !decision.allowRevisit {
			return a2a.Message{}, &a2a.Error{Kind: a2a.ErrRoutingLoop, Message: "routing loop detected", AgentID: decision.recipient}
		}
		r.fingerprints[fp]++

		outbound := r.prepareOutbound(current, decision.recipient, profile)
		extensionUsed := profile.HasExtension(a2a.ClientRoutingExtensionURI)

		ctx, span := r.tracer.StartRouterHop(ctx, decision.recipient, hop, extensionUsed)
		r.logger.Info("router: dispatching hop", "hop", hop, "recipient", decision.recipient, "extension_used", extensionUsed)
		r.logger.Debug("router: outbound metadata", "hop", hop, "metadata", outbound.Metadata)

		response, err := agent.Process(ctx, outbound)
		if err != nil {
			observability.RecordError(span, err)
			span.End()
			r.logger.Error("router: agent returned error", "hop", hop, "recipient", decision.recipient, "error", err)
			return a2a.Message{}, err
		}
		span.End()

		current = response
		r.senderStack = append(r.senderStack, decision.recipient)
		hop++
	}
}

// recipientDecision is the result of pickRecipient: either a terminal
// decision (return current to the caller) or a resolved recipient id
// plus whether that recipient's response declared allowRevisit.
type recipientDecision struct {
	recipient    string
	allowRevisit bool
	terminate    bool
}

// pickRecipient implements §4.5 step 1. The "default agent" fallback
// applies only at hop 0 (the raw inbound message has no routing
// response to parse); for every later hop, an absent or unparseable
// routing response is the graceful-fallback case of step 7 and
// terminates the route (dumb agents are expected to answer once and
// end; a smart agent that cannot be parsed is treated identically).
func (r *Router) pickRecipient(current a2a.Message, hop int) recipientDecision {
	parsed, ok := a2a.ParseClientRoutingResponse(current)
	if !ok {
		if hop == 0 {
			return recipientDecision{recipient: r.defaultAgentID}
		}
		return recipientDecision{terminate: true}
	}
	switch parsed.Recipient {
	case "user":
		return recipientDecision{terminate: true}
	case "sender":
		sender := r.resolveSenderReference()
		if sender == "user" {
			return recipientDecision{terminate: true}
		}
		return recipientDecision{recipient: sender, allowRevisit: parsed.AllowRevisit}
	default:
		return recipientDecision{recipient: parsed.Recipient, allowRevisit: parsed.AllowRevisit}
	}
}

// HopCount reports how many hops this Router has delivered so far,
// for callers (the Team) that want to record it as a metric after
// Route returns.
func (r *Router) HopCount() int {
	return len(r.senderStack)
}

// resolveSenderReference resolves the literal recipient "sender" to
// the id of whoever sent the message to the agent that is replying
// right now. Because the sender stack's top is always "who just
// responded" (pushed immediately after delivery), the answer a
// responding agent means by "my sender" is one level further back:
// the second-from-top entry. See the Router section of DESIGN.md for
// the worked derivation of this rule from §4.5's scenario 3.
func (r *Router) resolveSenderReference() string {
	if len(r.senderStack) < 2 {
		return "user"
	}
	return r.senderStack[len(r.senderStack)-2]
}

// injectionSender returns the sender value to inject into the outbound
// message for the hop about to be delivered: the top of the stack as
// it stands before this hop's own push, or "user" if no hop has
// completed yet.
func (r *Router) injectionSender() string {
	if len(r.senderStack) == 0 {
		return "user"
	}
	return r.senderStack[len(r.senderStack)-1]
}

// prepareOutbound implements §4.5 step 5: scrub any routing metadata
// left by the previous hop, then inject a fresh ClientRoutingRequest
// iff the recipient's profile declares the extension.
func (r *Router) prepareOutbound(current a2a.Message, recipientID string, profile a2a.AgentProfile) a2a.Message {
	scrubbed := a2a.ScrubClientRoutingMetadata(current)
	if !profile.HasExtension(a2a.ClientRoutingExtensionURI) {
		return scrubbed
	}
	req := a2a.ClientRoutingRequest{
		AgentCards: r.peerCards(recipientID),
		Sender:     r.injectionSender(),
	}
	return a2a.WithClientRoutingRequest(scrubbed, req)
}

// peerCards builds the SimplifiedAgentCard list for every registry
// member other than excludeID, sorted by id for deterministic output.
func (r *Router) peerCards(excludeID string) []a2a.SimplifiedAgentCard {
	entries := r.registry.Entries()
	ids := make([]string, 0, len(entries))
	for id := range entries {
		if id == excludeID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cards := make([]a2a.SimplifiedAgentCard, 0, len(ids))
	for _, id := range ids {
		e := entries[id]
		cards = append(cards, a2a.SimplifiedAgentCard{
			ID:                    id,
			Name:                  e.Profile.Name,
			Description:           e.Profile.Description,
			Capabilities:          capabilityNames(e.Profile.Capabilities),
			SupportsClientRouting: e.Profile.HasExtension(a2a.ClientRoutingExtensionURI),
		})
	}
	return cards
}

func capabilityNames(caps []a2a.AgentCapability) []string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.Name)
	}
	return names
}

func fingerprint(recipientID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return recipientID + ":" + hex.EncodeToString(sum[:])
}
