package config

import (
	"os"
	"regexp"
	"strings"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`) // ${VAR:-default}
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)        // ${VAR}
	envSimple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)           // $VAR
)

// ExpandEnv expands ${VAR}, ${VAR:-default}, and $VAR references in s
// against the process environment. A declaration's metadata values
// (api_key, bearer_token, ...) are the intended use: a deployment
// manifest references a secret by name instead of embedding it.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})
	s = envSimple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envSimple.FindStringSubmatch(match)[1])
	})
	return s
}

// ExpandMetadataEnv returns a copy of metadata with ExpandEnv applied
// to every value, so an AgentDeclaration's metadata can reference
// environment variables instead of embedding secrets in the manifest.
// A nil map is returned unchanged.
func ExpandMetadataEnv(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	expanded := make(map[string]string, len(metadata))
	for k, v := range metadata {
		expanded[k] = ExpandEnv(v)
	}
	return expanded
}
