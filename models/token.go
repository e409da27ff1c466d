package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// Captured Token Handling
//
// Queue entries carry the Authorization header that was valid at enqueue
// time. A mutation can sit queued for days, so by replay time that token may
// have expired — replaying it would earn a 401, a permanent 4xx, and the
// mutation would be silently dropped. To avoid losing user writes we inspect
// the captured token's expiry (claims only, no signature verification — the
// server verifies) and substitute the current session token when stale.
// ============================================================================

// tokenParser does unverified claim parsing only.
var tokenParser = jwt.NewParser()

// TokenExpired reports whether a JWT is past its expiry claim.
// Opaque (non-JWT) tokens and tokens without an exp claim are treated as
// not expired — we cannot judge them locally.
func TokenExpired(tokenString string) bool {
	if tokenString == "" {
		return false
	}

	token, _, err := tokenParser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return false
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Before(time.Now())
}

// RefreshAuthHeader returns the headers to use for a replay. If the captured
// Authorization token has expired and a live session token exists, the live
// token is substituted; otherwise the captured headers pass through verbatim.
func RefreshAuthHeader(captured map[string]string) map[string]string {
	auth, ok := captured["Authorization"]
	if !ok || !strings.HasPrefix(auth, "Bearer ") {
		return captured
	}

	capturedToken := strings.TrimPrefix(auth, "Bearer ")
	if !TokenExpired(capturedToken) {
		return captured
	}

	current := CurrentToken()
	if current == "" || current == capturedToken {
		return captured
	}

	headers := make(map[string]string, len(captured))
	for k, v := range captured {
		headers[k] = v
	}
	headers["Authorization"] = "Bearer " + current
	return headers
}
