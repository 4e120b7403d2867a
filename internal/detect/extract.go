package detect

import (
	"net/http"
	"strings"
)

// ExtractSignals pulls every candidate identity signal out of one request's
// metadata. Zero signals is a valid outcome; the detector turns that into
// an unresolved identity rather than an error.
func ExtractSignals(cfg *Config, path string, header http.Header) []Signal {
	var signals []Signal

	if s, ok := extractEndpoint(cfg, path); ok {
		signals = append(signals, s)
	}
	if s, ok := extractHeader(cfg, header); ok {
		signals = append(signals, s)
	}
	if s, ok := extractUserAgent(cfg, header.Get("User-Agent")); ok {
		signals = append(signals, s)
	}
	return signals
}

func extractEndpoint(cfg *Config, path string) (EndpointSignal, bool) {
	if strings.Contains(path, CatchAllPath) {
		return EndpointSignal{}, false
	}
	for _, route := range cfg.Routes {
		m := route.Pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		model := route.ModelName
		if route.ModelCapture && len(m) > 1 {
			// Model segments carry ':' as '_' for URL safety.
			model = strings.ReplaceAll(m[1], "_", ":")
		}
		return EndpointSignal{
			Pattern:    route.Pattern.String(),
			ClientType: route.ClientType,
			ModelName:  model,
		}, true
	}
	return EndpointSignal{}, false
}

func extractHeader(cfg *Config, header http.Header) (HeaderSignal, bool) {
	clientID := header.Get(cfg.ClientIDHeader)
	if clientID == "" {
		clientID = header.Get(cfg.LegacyClientHeader)
	}
	if clientID == "" {
		return HeaderSignal{}, false
	}
	return HeaderSignal{
		ClientID:  clientID,
		ModelName: header.Get(cfg.ModelNameHeader),
		Version:   header.Get(cfg.ClientVersionHeader),
	}, true
}

func extractUserAgent(cfg *Config, userAgent string) (UserAgentSignal, bool) {
	if userAgent == "" {
		return UserAgentSignal{}, false
	}
	for _, clientType := range cfg.PatternOrder {
		for _, pattern := range cfg.UserAgentPatterns[clientType] {
			if pattern.MatchString(userAgent) {
				return UserAgentSignal{
					ClientType:     clientType,
					MatchedPattern: pattern.String(),
					Version:        userAgentVersion(userAgent),
				}, true
			}
		}
	}
	return UserAgentSignal{}, false
}
