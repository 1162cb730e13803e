// Package ranch implements RANCH, a client-side multi-agent
// coordination core for the A2A (Agent-to-Agent) protocol.
//
// RANCH gives a process four building blocks: a hop-by-hop Router that
// decides, message by message, which agent speaks next; a Team adapter
// that presents a whole group of agents as a single a2a.Agent so teams
// nest like leaf agents; a JSON-RPC 2.0 service surface exposing a
// Team (or any agent) over HTTP; and a remote-agent client for talking
// to A2A endpoints elsewhere on the network.
//
// # Packages
//
//	a2a/           protocol types: Message, Part, Task, AgentCard, errors
//	transport/     JSON-RPC 2.0 over HTTP: envelopes, auth, retry
//	remoteagent/   remote A2A agent client + Agent contract adapter
//	registry/      generic BaseRegistry[T] + AgentRegistry
//	router/        the routing state machine + client-routing extension
//	team/          the Team-as-agent adapter, with cycle detection
//	taskstore/     in-memory task store with a waiter mechanism
//	rpcserver/     the JSON-RPC 2.0 HTTP handler
//	config/        declarative agent/team schema + fallible conversion
//	observability/ structured logging + OpenTelemetry tracing helpers
//
// # What RANCH is not
//
// RANCH does not load configuration files, ship a CLI, host or execute
// agent business logic, persist state across restarts, or discover
// agents dynamically — every agent a Team or Router can reach is
// registered explicitly by its embedding application.
package ranch
