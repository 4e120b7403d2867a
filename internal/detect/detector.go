package detect

import (
	"net/http"
	"strings"
)

// Resolve combines extracted signals into a single identity using strict
// priority: endpoint beats header beats user-agent. With no signals the
// identity is unresolved, keyed by a header-set fingerprint. Deterministic
// for the same inputs; completes without I/O so it runs inline on every
// request.
func Resolve(cfg *Config, signals []Signal, header http.Header) Identity {
	var (
		endpoint  *EndpointSignal
		headerSig *HeaderSignal
		uaSig     *UserAgentSignal
	)
	for _, s := range signals {
		switch sig := s.(type) {
		case EndpointSignal:
			if endpoint == nil {
				endpoint = &sig
			}
		case HeaderSignal:
			if headerSig == nil {
				headerSig = &sig
			}
		case UserAgentSignal:
			if uaSig == nil {
				uaSig = &sig
			}
		}
	}

	switch {
	case endpoint != nil:
		return resolveEndpoint(cfg, *endpoint, header)
	case headerSig != nil:
		return resolveHeader(cfg, *headerSig)
	case uaSig != nil:
		return resolveUserAgent(*uaSig)
	default:
		return Identity{
			ClientIdentifier: "anon-" + Fingerprint(header),
			ClientType:       "unknown",
			DetectionMethod:  MethodUnresolved,
			Confidence:       MethodUnresolved.Confidence(),
		}
	}
}

func resolveEndpoint(cfg *Config, sig EndpointSignal, header http.Header) Identity {
	identifier := sig.ClientType
	if sig.ClientType == "ollama" && sig.ModelName != "" {
		identifier = "ollama-" + strings.ReplaceAll(sig.ModelName, ":", "_")
	} else if sig.ClientType == "vscode-generic" && sig.ModelName != "" {
		identifier = "vscode-" + sig.ModelName
	}

	id := Identity{
		ClientIdentifier: identifier,
		ClientType:       sig.ClientType,
		ModelName:        sig.ModelName,
		DetectionMethod:  MethodEndpoint,
		Confidence:       MethodEndpoint.Confidence(),
	}
	// The endpoint decides identity; headers may still enrich model and
	// version when the route carries none.
	if id.ModelName == "" {
		id.ModelName = header.Get(cfg.ModelNameHeader)
	}
	id.ClientVersion = header.Get(cfg.ClientVersionHeader)
	return id
}

func resolveHeader(cfg *Config, sig HeaderSignal) Identity {
	id := Identity{
		ClientIdentifier: sig.ClientID,
		ModelName:        sig.ModelName,
		ClientVersion:    sig.Version,
		DetectionMethod:  MethodHeader,
		Confidence:       MethodHeader.Confidence(),
	}

	declared := strings.ToLower(sig.ClientID)
	if strings.HasPrefix(declared, "ollama-") {
		id.ClientType = "ollama"
		if id.ModelName == "" {
			id.ModelName = strings.TrimPrefix(declared, "ollama-")
		}
		return id
	}

	if clientType, ok := cfg.HeaderClientTypes[declared]; ok {
		id.ClientType = clientType
	} else {
		id.ClientType = "unknown"
	}
	return id
}

func resolveUserAgent(sig UserAgentSignal) Identity {
	return Identity{
		ClientIdentifier: sig.ClientType,
		ClientType:       sig.ClientType,
		ClientVersion:    sig.Version,
		DetectionMethod:  MethodUserAgent,
		Confidence:       MethodUserAgent.Confidence(),
	}
}
