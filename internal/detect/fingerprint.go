package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// fingerprintLen keeps anonymous identifiers short enough to read in admin
// listings while leaving collisions implausible for the population size.
const fingerprintLen = 12

// Fingerprint derives a stable identifier fragment from a request's header
// set. Two requests with identical header sets produce the same value, so
// repeated anonymous calls from one source are recognized as the same
// source without any false identity claim.
func Fingerprint(header http.Header) string {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(strings.Join(header.Values(k), ",")))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}
