// Package remoteagent turns a remote A2A endpoint into a usable
// in-process agent handle: message sending, task polling, retries
// (delegated to transport), and agent-card discovery (§4.3).
package remoteagent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/transport"
)

// TaskHandlingPolicy governs what SendAndResolve does when
// message/send returns a Task instead of completing synchronously.
type TaskHandlingPolicy int

const (
	// PollUntilComplete polls the task at 2 Hz until it reaches a
	// terminal state and returns its result. This is the default.
	PollUntilComplete TaskHandlingPolicy = iota
	// ReturnTaskInfo returns a synthetic Message describing the task id
	// instead of waiting for completion.
	ReturnTaskInfo
	// RejectTasks fails immediately with Internal("async tasks not
	// supported") whenever the remote returns a Task.
	RejectTasks
)

// Config configures a Client.
type Config struct {
	Transport transport.Transport
	Policy    TaskHandlingPolicy
	// PollInterval defaults to 500ms (2 Hz, per §4.3).
	PollInterval time.Duration
	// PollTimeoutMultiplier defaults to 10: the overall polling timeout
	// is the transport's request timeout times this multiplier.
	PollTimeoutMultiplier int
	// RequestTimeout is used to derive the default polling timeout when
	// Transport doesn't expose its own (e.g. a test double); ignored if
	// Transport implements the timeouter interface below.
	RequestTimeout time.Duration
}

type timeouter interface {
	Timeout() time.Duration
}

// Client wraps a transport.Transport and exposes the remote-agent
// client contract of §4.3. It also implements a2a.Agent (§4.4) so that
// remote agents and local adapters are interchangeable from the Team's
// perspective.
type Client struct {
	transport             transport.Transport
	policy                TaskHandlingPolicy
	pollInterval          time.Duration
	pollTimeoutMultiplier int
	requestTimeout        time.Duration

	mu         sync.Mutex
	cachedCard *a2a.AgentCard
}

// NewClient constructs a Client from cfg, filling in the §4.3 defaults.
func NewClient(cfg Config) *Client {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	mult := cfg.PollTimeoutMultiplier
	if mult <= 0 {
		mult = 10
	}
	return &Client{
		transport:             cfg.Transport,
		policy:                cfg.Policy,
		pollInterval:          interval,
		pollTimeoutMultiplier: mult,
		requestTimeout:        cfg.RequestTimeout,
	}
}

func (c *Client) pollTimeout() time.Duration {
	if t, ok := c.transport.(timeouter); ok && t.Timeout() > 0 {
		return t.Timeout() * time.Duration(c.pollTimeoutMultiplier)
	}
	if c.requestTimeout > 0 {
		return c.requestTimeout * time.Duration(c.pollTimeoutMultiplier)
	}
	return 30 * time.Second * time.Duration(c.pollTimeoutMultiplier)
}

// sendMessageParams / other params structs mirror the JSON-RPC method
// parameter shapes of §4.7.
type sendMessageParams struct {
	Message a2a.Message `json:"message"`
}

type taskIDParams struct {
	ID string `json:"taskId"`
}

// SendMessage delivers msg and returns either a completed Message or a
// Task describing asynchronous work (§4.3).
func (c *Client) SendMessage(ctx context.Context, msg a2a.Message) (a2a.SendResponse, error) {
	var raw json.RawMessage
	if err := c.transport.Call(ctx, "message/send", sendMessageParams{Message: msg}, &raw); err != nil {
		return a2a.SendResponse{}, err
	}
	return decodeSendResponse(raw)
}

// decodeSendResponse distinguishes Task from Message by shape: a Task
// always carries "status"; a Message always carries "role" and "parts".
func decodeSendResponse(raw json.RawMessage) (a2a.SendResponse, error) {
	var probe struct {
		Status json.RawMessage `json:"status"`
		Role   json.RawMessage `json:"role"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return a2a.SendResponse{}, a2a.WrapError(a2a.ErrValidation, err, "decoding send response")
	}
	if probe.Status != nil && probe.Role == nil {
		var task a2a.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return a2a.SendResponse{}, a2a.WrapError(a2a.ErrValidation, err, "decoding task")
		}
		return a2a.SendResponse{Task: &task}, nil
	}
	var msg a2a.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return a2a.SendResponse{}, a2a.WrapError(a2a.ErrValidation, err, "decoding message")
	}
	return a2a.SendResponse{Message: &msg}, nil
}

// GetTask returns the full task, including its result if terminal.
func (c *Client) GetTask(ctx context.Context, taskID string) (a2a.Task, error) {
	var task a2a.Task
	err := c.transport.Call(ctx, "task/get", taskIDParams{ID: taskID}, &task)
	return task, err
}

// GetTaskStatus returns the lightweight current TaskStatus.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (a2a.TaskStatus, error) {
	var status a2a.TaskStatus
	err := c.transport.Call(ctx, "task/status", taskIDParams{ID: taskID}, &status)
	return status, err
}

// CancelTask requests cancellation and returns the resulting status.
func (c *Client) CancelTask(ctx context.Context, taskID string) (a2a.TaskStatus, error) {
	var status a2a.TaskStatus
	err := c.transport.Call(ctx, "task/cancel", taskIDParams{ID: taskID}, &status)
	return status, err
}

// GetAgentCard returns the remote agent's AgentCard, cached forever
// after the first successful retrieval (§4.8; TTL policy resolved as
// "no expiry" per the Open Question in the expanded spec).
func (c *Client) GetAgentCard(ctx context.Context) (a2a.AgentCard, error) {
	c.mu.Lock()
	if c.cachedCard != nil {
		card := *c.cachedCard
		c.mu.Unlock()
		return card, nil
	}
	c.mu.Unlock()

	var card a2a.AgentCard
	if err := c.transport.Call(ctx, "agent/card", nil, &card); err != nil {
		return a2a.AgentCard{}, err
	}

	c.mu.Lock()
	c.cachedCard = &card
	c.mu.Unlock()
	return card, nil
}

// SendAndResolve delivers msg and, depending on the configured
// TaskHandlingPolicy, resolves any resulting Task into a final Message
// (§4.3).
func (c *Client) SendAndResolve(ctx context.Context, msg a2a.Message) (a2a.Message, error) {
	resp, err := c.SendMessage(ctx, msg)
	if err != nil {
		return a2a.Message{}, err
	}
	if resp.Message != nil {
		return *resp.Message, nil
	}
	task := resp.Task
	switch c.policy {
	case RejectTasks:
		return a2a.Message{}, a2a.NewError(a2a.ErrInternal, "async tasks not supported")
	case ReturnTaskInfo:
		return a2a.NewAgentText(task.ID+"-info", "task "+task.ID+" is "+string(task.Status.State)), nil
	default:
		return c.pollUntilComplete(ctx, task.ID)
	}
}

func (c *Client) pollUntilComplete(ctx context.Context, taskID string) (a2a.Message, error) {
	deadline := time.Now().Add(c.pollTimeout())
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if a2a.IsCancelled(ctx) {
			return a2a.Message{}, a2a.TaskCancelledError(taskID)
		}
		status, err := c.GetTaskStatus(ctx, taskID)
		if err != nil {
			return a2a.Message{}, err
		}
		switch status.State {
		case a2a.TaskStateCompleted:
			task, err := c.GetTask(ctx, taskID)
			if err != nil {
				return a2a.Message{}, err
			}
			if task.Result != nil {
				return *task.Result, nil
			}
			return a2a.Message{}, a2a.TaskFailedError(taskID, "completed task has no result")
		case a2a.TaskStateFailed:
			reason := "task failed"
			if status.Message != nil {
				reason = status.Message.Text()
			}
			return a2a.Message{}, a2a.TaskFailedError(taskID, reason)
		case a2a.TaskStateCancelled:
			return a2a.Message{}, a2a.TaskCancelledError(taskID)
		}

		if time.Now().After(deadline) {
			return a2a.Message{}, a2a.NewError(a2a.ErrTimeout, "polling task %s timed out", taskID)
		}
		select {
		case <-ctx.Done():
			return a2a.Message{}, a2a.WrapError(a2a.ErrTimeout, ctx.Err(), "polling cancelled")
		case <-ticker.C:
		}
	}
}

// ---- a2a.Agent contract (§4.4) ----

// Profile adapts GetAgentCard to the internal Agent contract.
func (c *Client) Profile(ctx context.Context) (a2a.AgentProfile, error) {
	card, err := c.GetAgentCard(ctx)
	if err != nil {
		return a2a.AgentProfile{}, err
	}
	return card.AgentProfile, nil
}

// Process adapts SendAndResolve to the internal Agent contract.
func (c *Client) Process(ctx context.Context, msg a2a.Message) (a2a.Message, error) {
	return c.SendAndResolve(ctx, msg)
}

// HealthCheck uses the default implementation: a successful Profile
// call is treated as healthy (§4.4).
func (c *Client) HealthCheck(ctx context.Context) bool {
	return a2a.DefaultHealthCheck(ctx, c)
}

var _ a2a.Agent = (*Client)(nil)
