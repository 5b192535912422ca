package client

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Response is the result of a successful request.
type Response struct {
	// Payload is the validated JSON body.
	Payload []byte

	// StatusCode is the HTTP status of the upstream response. Zero when
	// the payload was served from cache.
	StatusCode int

	// FromCache reports whether the payload was served from the local
	// cache without a network call.
	FromCache bool

	// Attempts is the number of network calls made. Zero on a cache hit.
	Attempts int
}

// Key derives a stable cache key from the endpoint and query parameters.
// Parameters are encoded in sorted order so logically identical requests
// share an entry. The credential never participates: it is injected at
// request time, after the key is derived.
func Key(endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString(endpoint)
	if enc := params.Encode(); enc != "" {
		b.WriteByte('?')
		b.WriteString(enc)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// buildURL joins the base URL with the endpoint path and query parameters.
// The credential is appended last, when configured as a query parameter,
// so it never leaks into the cache key derivation above.
func buildURL(base, endpoint string, params url.Values, keyParam, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(endpoint, "/")

	q := make(url.Values, len(params)+1)
	for k, vs := range params {
		q[k] = vs
	}
	if keyParam != "" && key != "" {
		q.Set(keyParam, key)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
