package config

import (
	"fmt"
	"time"

	"github.com/cyberelf/ranch/transport"
)

// ConversionErrorKind discriminates the ways an AgentDeclaration can
// fail to convert into a concrete backend config (§6.3).
type ConversionErrorKind int

const (
	// WrongProtocol: the declaration's Protocol doesn't match the
	// conversion function being called (e.g. ToA2AConfig on an
	// "openai" declaration).
	WrongProtocol ConversionErrorKind = iota
	// MissingField: a required field was empty or absent.
	MissingField
	// InvalidValue: a field was present but outside its allowed range
	// or set of values.
	InvalidValue
)

// ConversionError is returned by ToA2AConfig/ToOpenAIConfig and by
// AgentDeclaration/TeamDeclaration.Validate.
type ConversionError struct {
	Kind     ConversionErrorKind
	Field    string
	Expected string
	Found    string
	Value    any
	Reason   string
}

func (e *ConversionError) Error() string {
	switch e.Kind {
	case WrongProtocol:
		return fmt.Sprintf("config: wrong protocol: expected %q, found %q", e.Expected, e.Found)
	case MissingField:
		return fmt.Sprintf("config: missing required field %q", e.Field)
	case InvalidValue:
		return fmt.Sprintf("config: invalid value for %q: %v (%s)", e.Field, e.Value, e.Reason)
	default:
		return "config: conversion error"
	}
}

func wrongProtocol(expected, found string) error {
	return &ConversionError{Kind: WrongProtocol, Expected: expected, Found: found}
}

func missingField(field string) error {
	return &ConversionError{Kind: MissingField, Field: field}
}

func invalidValue(field string, value any, reason string) error {
	return &ConversionError{Kind: InvalidValue, Field: field, Value: value, Reason: reason}
}

// ToA2AConfig converts an AgentDeclaration with Protocol "a2a" into a
// transport.Config suitable for transport.NewHTTPTransport, applying the
// §6.3 validation rules and deriving an AuthStrategy from whichever of
// metadata["api_key"]/metadata["bearer_token"] is set.
func ToA2AConfig(decl AgentDeclaration) (transport.Config, error) {
	if decl.Protocol != ProtocolA2A {
		return transport.Config{}, wrongProtocol(ProtocolA2A, decl.Protocol)
	}
	if err := decl.Validate(); err != nil {
		return transport.Config{}, err
	}
	if decl.Endpoint == "" {
		return transport.Config{}, missingField("endpoint")
	}

	cfg := transport.Config{
		Endpoint: decl.Endpoint,
		Timeout:  time.Duration(decl.TimeoutSeconds) * time.Second,
		Retry:    transport.RetryPolicy{MaxAttempts: decl.MaxRetries + 1},
	}
	switch {
	case decl.Metadata["api_key"] != "":
		cfg.Auth = transport.ApiKeyAuth{Key: decl.Metadata["api_key"]}
	case decl.Metadata["bearer_token"] != "":
		cfg.Auth = transport.BearerAuth{Token: decl.Metadata["bearer_token"]}
	}
	return cfg, nil
}

// OpenAIConfig is the concrete backend config for a Protocol "openai"
// agent declaration: a non-A2A remote LLM reachable as a simple HTTP
// chat-completions style endpoint (§6.3, §4.8's "concrete remote-agent
// internals are out of scope" leaves the wiring of this config to the
// caller).
type OpenAIConfig struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

// ToOpenAIConfig converts an AgentDeclaration with Protocol "openai"
// into an OpenAIConfig, applying the §6.3 validation rules: an API key
// is required, temperature must be in [0.0, 2.0], and max_tokens must
// be in [1, 4096].
func ToOpenAIConfig(decl AgentDeclaration) (OpenAIConfig, error) {
	if decl.Protocol != ProtocolOpenAI {
		return OpenAIConfig{}, wrongProtocol(ProtocolOpenAI, decl.Protocol)
	}
	if err := decl.Validate(); err != nil {
		return OpenAIConfig{}, err
	}

	apiKey := decl.Metadata["api_key"]
	if apiKey == "" {
		return OpenAIConfig{}, missingField("metadata.api_key")
	}

	temperature := 1.0
	if raw, ok := decl.Metadata["temperature"]; ok {
		var err error
		temperature, err = parseFloatField("temperature", raw)
		if err != nil {
			return OpenAIConfig{}, err
		}
	}
	if temperature < 0.0 || temperature > 2.0 {
		return OpenAIConfig{}, invalidValue("temperature", temperature, "must be between 0.0 and 2.0")
	}

	maxTokens := 1024
	if raw, ok := decl.Metadata["max_tokens"]; ok {
		var err error
		maxTokens, err = parseIntField("max_tokens", raw)
		if err != nil {
			return OpenAIConfig{}, err
		}
	}
	if maxTokens < 1 || maxTokens > 4096 {
		return OpenAIConfig{}, invalidValue("max_tokens", maxTokens, "must be between 1 and 4096")
	}

	return OpenAIConfig{
		Endpoint:    decl.Endpoint,
		APIKey:      apiKey,
		Timeout:     time.Duration(decl.TimeoutSeconds) * time.Second,
		MaxRetries:  decl.MaxRetries,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func parseFloatField(field, raw string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(raw, "%g", &v); err != nil {
		return 0, invalidValue(field, raw, "must be a number")
	}
	return v, nil
}

func parseIntField(field, raw string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, invalidValue(field, raw, "must be an integer")
	}
	return v, nil
}
