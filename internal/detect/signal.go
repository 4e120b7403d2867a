// Package detect turns inbound request metadata into a resolved client
// identity. Everything here is pure: no I/O, no clock, no storage. The
// registry and quarantine layers decide what to do with the result.
package detect

// Method is how an identity was established. Confidence is fixed per
// method; it expresses how trustworthy the method is, not a probability.
type Method string

const (
	MethodEndpoint   Method = "endpoint"
	MethodHeader     Method = "header"
	MethodUserAgent  Method = "userAgent"
	MethodUnresolved Method = "unresolved"
)

// Confidence returns the fixed detection confidence for the method.
func (m Method) Confidence() int {
	switch m {
	case MethodEndpoint:
		return 95
	case MethodHeader:
		return 85
	case MethodUserAgent:
		return 70
	default:
		return 0
	}
}

// Signal is one piece of request metadata usable to infer client identity.
// The variant set is closed: endpoint, header, user-agent.
type Signal interface {
	Method() Method
	isSignal()
}

// EndpointSignal is a match against the routing table. Highest priority.
type EndpointSignal struct {
	Pattern    string
	ClientType string
	ModelName  string
}

func (EndpointSignal) Method() Method { return MethodEndpoint }
func (EndpointSignal) isSignal()      {}

// HeaderSignal carries explicit client identification headers.
type HeaderSignal struct {
	ClientID  string
	ModelName string
	Version   string
}

func (HeaderSignal) Method() Method { return MethodHeader }
func (HeaderSignal) isSignal()      {}

// UserAgentSignal is a match of the User-Agent string against a known
// client pattern. Lowest priority of the positive signals.
type UserAgentSignal struct {
	ClientType     string
	MatchedPattern string
	Version        string
}

func (UserAgentSignal) Method() Method { return MethodUserAgent }
func (UserAgentSignal) isSignal()      {}

// Identity is the per-request resolution outcome. Created per request,
// stamped into provenance, then discarded.
type Identity struct {
	ClientIdentifier string
	ClientType       string
	ModelName        string
	ClientVersion    string
	DetectionMethod  Method
	Confidence       int
}

// Unresolved reports whether the identity is the low-confidence anonymous
// outcome. Not an error: unresolved clients are served and quarantined.
func (id Identity) Unresolved() bool {
	return id.DetectionMethod == MethodUnresolved
}
