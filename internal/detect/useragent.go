package detect

import (
	"regexp"

	"github.com/mssola/useragent"
)

// MCP clients rarely send browser-grade agent strings, so a plain
// "name/1.2.3" or "v1.2.3" fallback runs after the structured parse.
var versionFallback = regexp.MustCompile(`(?i)(?:version|v)[\s/]?(\d+\.\d+(?:\.\d+)?)`)

// userAgentVersion extracts a client version from a User-Agent string.
// Returns "" when no version is recognizable.
func userAgentVersion(raw string) string {
	ua := useragent.New(raw)
	if _, version := ua.Browser(); version != "" {
		return version
	}
	if m := versionFallback.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
