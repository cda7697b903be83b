package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trakdhq/trakd-mcp/internal/session"
)

var (
	// ErrSessionTokenMissing indicates no MCP session token was configured.
	ErrSessionTokenMissing = errors.New("mcp session token is not configured")
	// ErrBearerTokenMissing indicates Authorization header did not contain a bearer token.
	ErrBearerTokenMissing = errors.New("missing or malformed Authorization bearer token")
	// ErrBearerTokenInvalid indicates the provided bearer token did not match the configured session token.
	ErrBearerTokenInvalid = errors.New("invalid bearer token for MCP session")
)

// SessionAuthenticator authenticates inbound HTTP calls and yields the
// session to bind to the request context. It verifies who is calling; what
// the caller may do is decided later by the dispatcher.
type SessionAuthenticator interface {
	AuthenticateHTTP(r *http.Request) (*session.Session, error)
}

// TokenSessionAuthenticator validates incoming bearer tokens against the
// configured session token and hands out the pre-built session.
type TokenSessionAuthenticator struct {
	token string
	sess  *session.Session
}

// NewTokenSessionAuthenticator creates a session authenticator bound to
// one session.
func NewTokenSessionAuthenticator(token string, sess *session.Session) *TokenSessionAuthenticator {
	return &TokenSessionAuthenticator{
		token: strings.TrimSpace(token),
		sess:  sess,
	}
}

// AuthenticateHTTP validates the Authorization bearer token.
func (a *TokenSessionAuthenticator) AuthenticateHTTP(r *http.Request) (*session.Session, error) {
	if a.token == "" {
		return nil, fmt.Errorf("%w; set TRAKD_MCP_TOKEN or TRAKD_TOKEN", ErrSessionTokenMissing)
	}
	presented := parseBearerToken(r.Header.Get("Authorization"))
	if presented == "" {
		return nil, ErrBearerTokenMissing
	}
	if presented != a.token {
		return nil, ErrBearerTokenInvalid
	}
	return a.sess, nil
}

func authFailureResponse(err error) (int, string) {
	if err == nil {
		return http.StatusUnauthorized, "unauthorized"
	}
	switch {
	case errors.Is(err, ErrSessionTokenMissing):
		return http.StatusUnauthorized, "MCP session token is not configured; set TRAKD_MCP_TOKEN or TRAKD_TOKEN"
	case errors.Is(err, ErrBearerTokenMissing):
		return http.StatusUnauthorized, "missing or malformed Authorization header; expected Bearer <token>"
	case errors.Is(err, ErrBearerTokenInvalid):
		return http.StatusUnauthorized, "invalid bearer token for MCP session"
	default:
		return http.StatusUnauthorized, err.Error()
	}
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// subjectFromToken extracts the sub claim from JWT-shaped tokens. Opaque
// tokens yield no subject.
func subjectFromToken(token string) string {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return ""
	}
	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var payload struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Sub)
}
