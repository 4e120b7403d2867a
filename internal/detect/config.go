package detect

import "regexp"

// Route maps a path pattern to a client type. Routes are matched in order;
// parametrized routes capture the model segment.
type Route struct {
	Pattern      *regexp.Regexp
	ClientType   string
	ModelName    string
	ModelCapture bool
}

// Config is the immutable lookup state for signal extraction. Build it once
// at startup and pass it by reference; never mutate it afterwards.
type Config struct {
	Routes []Route

	// Recognized identification headers.
	ClientIDHeader      string
	LegacyClientHeader  string
	ModelNameHeader     string
	ClientVersionHeader string

	// HeaderClientTypes maps declared client IDs to canonical client types.
	HeaderClientTypes map[string]string

	// UserAgentPatterns maps client types to User-Agent regexes, checked in
	// PatternOrder so specific clients win over generic editor matches.
	UserAgentPatterns map[string][]*regexp.Regexp
	PatternOrder      []string
}

// CatchAllPath is the dedicated route for connections that declare no
// recognizable identity. It never produces an EndpointSignal.
const CatchAllPath = "/mcp/unknown/"

// DefaultConfig returns the routing table and matching rules for the
// first-party client roster.
func DefaultConfig() *Config {
	return &Config{
		Routes: []Route{
			{Pattern: regexp.MustCompile(`/mcp/claude-code/`), ClientType: "claude-code", ModelName: "claude-3.5-sonnet"},
			{Pattern: regexp.MustCompile(`/mcp/claude-desktop/`), ClientType: "claude-desktop", ModelName: "claude-3.5-sonnet"},
			{Pattern: regexp.MustCompile(`/mcp/ollama-([^/]+)/`), ClientType: "ollama", ModelCapture: true},
			{Pattern: regexp.MustCompile(`/mcp/ollama/`), ClientType: "ollama"},
			{Pattern: regexp.MustCompile(`/mcp/vscode-claude/`), ClientType: "claude-vscode", ModelName: "claude-3.5-sonnet"},
			{Pattern: regexp.MustCompile(`/mcp/vscode-gpt/`), ClientType: "vscode-gpt", ModelName: "gpt-4"},
			{Pattern: regexp.MustCompile(`/mcp/vscode-([^/]+)/`), ClientType: "vscode-generic", ModelCapture: true},
		},

		ClientIDHeader:      "X-Client-ID",
		LegacyClientHeader:  "X-MCP-Client",
		ModelNameHeader:     "X-Model-Name",
		ClientVersionHeader: "X-Client-Version",

		HeaderClientTypes: map[string]string{
			"claude-code":    "claude-code",
			"claude-desktop": "claude-desktop",
			"desktop":        "claude-desktop",
			"vscode-claude":  "claude-vscode",
			"claude-vscode":  "claude-vscode",
			"vscode":         "vscode-generic",
			"ollama":         "ollama",
			"openmemory":     "openmemory",
		},

		UserAgentPatterns: map[string][]*regexp.Regexp{
			"claude-code": {
				regexp.MustCompile(`(?i)claude-code`),
				regexp.MustCompile(`(?i)anthropic-claude-code`),
				regexp.MustCompile(`(?i)@anthropic/claude-code`),
			},
			"claude-desktop": {
				regexp.MustCompile(`(?i)electron.*claude`),
				regexp.MustCompile(`(?i)claude-desktop`),
				regexp.MustCompile(`(?i)anthropic.*desktop`),
			},
			"claude-vscode": {
				regexp.MustCompile(`(?i)vscode.*claude`),
				regexp.MustCompile(`(?i)visual.?studio.?code.*claude`),
				regexp.MustCompile(`(?i)code-oss.*claude`),
				regexp.MustCompile(`(?i)cursor.*claude`),
			},
			"ollama": {
				regexp.MustCompile(`(?i)ollama`),
				regexp.MustCompile(`(?i)llama.*cpp`),
			},
			"vscode-generic": {
				regexp.MustCompile(`(?i)vscode`),
				regexp.MustCompile(`(?i)visual.?studio.?code`),
				regexp.MustCompile(`(?i)code-oss`),
				regexp.MustCompile(`(?i)cursor`),
			},
		},
		// Specific clients first: a "vscode ... claude" agent must resolve
		// claude-vscode, not vscode-generic.
		PatternOrder: []string{"claude-code", "claude-desktop", "claude-vscode", "ollama", "vscode-generic"},
	}
}
