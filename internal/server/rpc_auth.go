package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/warpdl/warpalarm/pkg/logger"
)

const codeInvalidRequest = -32600

// requireToken wraps an http.Handler with Bearer token authentication.
// Auth failures get a JSON-RPC 2.0 error response, not a plain HTTP error.
// If secret is empty, all requests are rejected: RPC requires explicit opt-in.
func requireToken(secret string, l logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validToken(secret, r.Header.Get("Authorization")) {
			l.Warning("rpc: rejected unauthorized request from %s to %s", r.RemoteAddr, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error": map[string]any{
					"code":    codeInvalidRequest,
					"message": "Unauthorized",
				},
				"id": nil,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validToken reports whether authHeader is "Bearer <secret>". The comparison
// is constant-time. An empty secret matches nothing.
func validToken(secret, authHeader string) bool {
	if secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
