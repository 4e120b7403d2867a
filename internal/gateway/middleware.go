package gateway

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"

	"memgate/internal/detect"
	"memgate/pkg/requestcontext"
)

type contextKey string

const clientKey contextKey = "gateway.client"

// ClientFrom returns the identity resolved by the detection middleware.
func ClientFrom(ctx context.Context) (detect.Identity, bool) {
	identity, ok := ctx.Value(clientKey).(detect.Identity)
	return identity, ok
}

func withClient(ctx context.Context, identity detect.Identity) context.Context {
	return context.WithValue(ctx, clientKey, identity)
}

// RequestID assigns each request an ID for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Detection resolves the caller's identity from the request and stores it
// in the context. Resolution never fails; unmatched requests carry an
// unresolved identity with zero confidence.
func (h *Handler) Detection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signals := detect.ExtractSignals(h.detectCfg, r.URL.Path, r.Header)
		identity := detect.Resolve(h.detectCfg, signals, r.Header)
		h.metrics.RecordDetection(string(identity.DetectionMethod), identity.ClientType)

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.UserAgent())
		ctx = withClient(ctx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
