// Package config loads trakd-mcp configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// TransportStdio runs MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP runs MCP over HTTP with SSE tool streaming.
	TransportHTTP = "http"

	defaultListenAddr = ":27780"
	defaultAPIBaseURL = "https://trakd.io"
)

// Config holds service runtime configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	Transport  string

	APIBaseURL string

	AllowCLIConfigToken bool
	CLIConfigPath       string

	// GrantedScopes and GrantedSkills are comma-separated capability lists
	// for the session. An unset scope list means the default read-only
	// grant; an unset skill list means no skill-gated tool is allowed.
	GrantedScopes    string
	GrantedScopesSet bool
	GrantedSkills    string
	GrantedSkillsSet bool

	// Session constraints. Once set, every tool call in the session runs
	// against these values regardless of caller-supplied parameters.
	OrganizationConstraint string
	ProjectConstraint      string
	RegionConstraint       string

	// ToolDenylist is a regular expression; matching tool names are
	// excluded from the registry at startup.
	ToolDenylist string

	MetricsEnabled bool
	TracesEnabled  bool
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	scopes, scopesSet := os.LookupEnv("TRAKD_MCP_SCOPES")
	skills, skillsSet := os.LookupEnv("TRAKD_MCP_SKILLS")

	cfg := Config{
		ListenAddr:             envOrDefault("TRAKD_MCP_LISTEN_ADDR", defaultListenAddr),
		LogLevel:               strings.ToLower(strings.TrimSpace(envOrDefault("TRAKD_MCP_LOG_LEVEL", "info"))),
		Transport:              strings.ToLower(strings.TrimSpace(envOrDefault("TRAKD_MCP_TRANSPORT", TransportStdio))),
		APIBaseURL:             envOrDefault("TRAKD_MCP_API_URL", defaultAPIBaseURL),
		AllowCLIConfigToken:    envBool("TRAKD_MCP_ALLOW_CLI_CONFIG_TOKEN", false),
		CLIConfigPath:          strings.TrimSpace(os.Getenv("TRAKD_MCP_CLI_CONFIG_PATH")),
		GrantedScopes:          scopes,
		GrantedScopesSet:       scopesSet,
		GrantedSkills:          skills,
		GrantedSkillsSet:       skillsSet,
		OrganizationConstraint: strings.TrimSpace(os.Getenv("TRAKD_MCP_ORGANIZATION")),
		ProjectConstraint:      strings.TrimSpace(os.Getenv("TRAKD_MCP_PROJECT")),
		RegionConstraint:       strings.TrimSpace(os.Getenv("TRAKD_MCP_REGION_URL")),
		ToolDenylist:           strings.TrimSpace(os.Getenv("TRAKD_MCP_TOOL_DENYLIST")),
		MetricsEnabled:         envBool("TRAKD_MCP_METRICS_ENABLED", true),
		TracesEnabled:          envBool("TRAKD_MCP_TRACES_ENABLED", false),
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("invalid TRAKD_MCP_TRANSPORT %q (allowed: %s|%s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("TRAKD_MCP_API_URL must not be empty")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}
