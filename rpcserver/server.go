// Package rpcserver exposes a team as an A2A JSON-RPC 2.0 service
// (§4.7): a single /rpc endpoint dispatching message/send, task/get,
// task/status, task/cancel, and agent/card, plus the conventional
// .well-known/agent-card.json discovery alias (§6.1).
package rpcserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/taskstore"
	"github.com/cyberelf/ranch/transport"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultSyncTimeout bounds how long message/send waits for a
// synchronous completion before falling back to returning a Task
// (§4.7).
const DefaultSyncTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	// Agent is the team (or any a2a.Agent) the service exposes.
	Agent a2a.Agent

	// Store is the task store backing task/get, task/status, and
	// task/cancel. If nil, a fresh in-memory Store is created.
	Store *taskstore.Store

	// SyncTimeout bounds message/send's synchronous wait. Defaults to
	// DefaultSyncTimeout.
	SyncTimeout time.Duration

	// RequireAuth, when true, rejects requests lacking a valid bearer
	// token against KeySet with -32001 Authentication.
	RequireAuth bool
	KeySet      jwk.Set

	// RequiredExtensions lists extension URIs the served agent demands
	// every caller declare. Each is advertised in AgentCard.Capabilities.Extensions
	// with Required: true, and a request whose A2A-Extensions header
	// omits one is rejected with ExtensionSupportRequired before any
	// method runs.
	RequiredExtensions []string

	Logger *slog.Logger
}

// Server is the A2A JSON-RPC 2.0 HTTP surface over a single agent.
type Server struct {
	agent              a2a.Agent
	store              *taskstore.Store
	syncTimeout        time.Duration
	requireAuth        bool
	keySet             jwk.Set
	requiredExtensions []string
	logger             *slog.Logger

	router chi.Router
}

// New constructs a Server and wires its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = taskstore.New()
	}
	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}

	s := &Server{
		agent:              cfg.Agent,
		store:              store,
		syncTimeout:        syncTimeout,
		requireAuth:        cfg.RequireAuth,
		keySet:             cfg.KeySet,
		requiredExtensions: cfg.RequiredExtensions,
		logger:             logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	if s.requireAuth {
		r.Use(s.authMiddleware)
	}
	r.Post("/rpc", s.handleRPC)
	r.Get("/.well-known/agent-card.json", s.handleAgentCardDiscovery)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware is permissive by default (§4.7: "suitable for
// development; production deployments are expected to restrict it
// externally").
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, A2A-Extensions")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware verifies an inbound bearer token against s.keySet,
// rejecting requests lacking one or failing verification with 401
// (surfaced to the JSON-RPC layer as -32001 Authentication, §6.1).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeAuthError(w, "missing bearer token")
			return
		}
		parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(s.keySet), jwt.WithValidate(true))
		if err != nil {
			writeAuthError(w, "invalid bearer token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, parsed)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsContextKey struct{}

func writeAuthError(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(transport.Response{JSONRPC: "2.0", Error: toRPCError(a2a.NewError(a2a.ErrAuthentication, "%s", reason))})
}
