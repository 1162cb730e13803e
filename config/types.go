// Package config defines the declarative schema an external deployment
// manifest uses to describe agents and teams (§6.3), plus the fallible
// conversions from that schema into the concrete wiring types other
// packages consume. It deliberately does not read any file format: a
// caller decodes TOML/YAML/JSON/env-derived data into these structs
// itself (e.g. via github.com/mitchellh/mapstructure on a generic
// map[string]any) and hands the result to this package.
package config

var (
	_ ConfigInterface = (*AgentDeclaration)(nil)
	_ ConfigInterface = (*TeamDeclaration)(nil)
)

// AgentDeclaration describes one agent entry in a deployment manifest
// (§6.3). Protocol selects which conversion function
// (ToA2AConfig/ToOpenAIConfig) applies to it.
type AgentDeclaration struct {
	ID             string            `yaml:"id" mapstructure:"id"`
	Name           string            `yaml:"name,omitempty" mapstructure:"name"`
	Endpoint       string            `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Protocol       string            `yaml:"protocol" mapstructure:"protocol"`
	Capabilities   []string          `yaml:"capabilities,omitempty" mapstructure:"capabilities"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	MaxRetries     int               `yaml:"max_retries,omitempty" mapstructure:"max_retries"`
	Metadata       map[string]string `yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// Recognized AgentDeclaration.Protocol values (§6.3).
const (
	ProtocolA2A    = "a2a"
	ProtocolOpenAI = "openai"
)

// SetDefaults fills in the unset fields Validate would otherwise
// reject, and expands environment variable references in Metadata
// (ExpandEnv) so a manifest can say "${OPENAI_API_KEY}" instead of
// embedding the secret directly.
func (a *AgentDeclaration) SetDefaults() {
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.TimeoutSeconds == 0 {
		a.TimeoutSeconds = 30
	}
	a.Metadata = ExpandMetadataEnv(a.Metadata)
}

// Validate checks the protocol-independent constraints of §6.3: a
// declaration still needs ToA2AConfig/ToOpenAIConfig to check the
// protocol-specific ones.
func (a *AgentDeclaration) Validate() error {
	if a.ID == "" {
		return missingField("id")
	}
	if a.Protocol != ProtocolA2A && a.Protocol != ProtocolOpenAI {
		return invalidValue("protocol", a.Protocol, "must be \"a2a\" or \"openai\"")
	}
	if a.TimeoutSeconds < 1 || a.TimeoutSeconds > 300 {
		return invalidValue("timeout_seconds", a.TimeoutSeconds, "must be between 1 and 300")
	}
	if a.MaxRetries < 0 || a.MaxRetries > 10 {
		return invalidValue("max_retries", a.MaxRetries, "must be between 0 and 10")
	}
	return nil
}

// TeamMemberDeclaration is one entry in a TeamDeclaration's agent list.
type TeamMemberDeclaration struct {
	AgentID      string   `yaml:"agent_id" mapstructure:"agent_id"`
	Role         string   `yaml:"role,omitempty" mapstructure:"role"`
	Capabilities []string `yaml:"capabilities,omitempty" mapstructure:"capabilities"`
}

// RouterDeclaration configures the Router a TeamDeclaration wires up
// (§4.6, §6.3).
type RouterDeclaration struct {
	DefaultAgentID string `yaml:"default_agent_id" mapstructure:"default_agent_id"`
	MaxRoutingHops int    `yaml:"max_routing_hops,omitempty" mapstructure:"max_routing_hops"`
}

// TeamDeclaration describes one team entry in a deployment manifest
// (§6.3).
type TeamDeclaration struct {
	ID          string                  `yaml:"id" mapstructure:"id"`
	Name        string                  `yaml:"name,omitempty" mapstructure:"name"`
	Description string                  `yaml:"description,omitempty" mapstructure:"description"`
	Agents      []TeamMemberDeclaration `yaml:"agents,omitempty" mapstructure:"agents"`
	Router      RouterDeclaration       `yaml:"router_config" mapstructure:"router_config"`
}

// SetDefaults fills in the unset fields Validate would otherwise reject.
func (t *TeamDeclaration) SetDefaults() {
	if t.Name == "" {
		t.Name = t.ID
	}
}

// Validate checks the structural constraints of §6.3: a non-empty
// membership, and a default agent that is actually a member.
func (t *TeamDeclaration) Validate() error {
	if t.ID == "" {
		return missingField("id")
	}
	if len(t.Agents) == 0 {
		return invalidValue("agents", len(t.Agents), "a team must declare at least one agent")
	}
	if t.Router.DefaultAgentID == "" {
		return missingField("router_config.default_agent_id")
	}
	if t.Router.MaxRoutingHops < 0 {
		return invalidValue("router_config.max_routing_hops", t.Router.MaxRoutingHops, "must not be negative")
	}
	for _, m := range t.Agents {
		if m.AgentID == t.Router.DefaultAgentID {
			return nil
		}
	}
	return invalidValue("router_config.default_agent_id", t.Router.DefaultAgentID, "is not among the team's agents")
}
