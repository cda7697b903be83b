// Package session carries the per-caller authorization context for MCP tool
// calls. The carrier is context.Context, Go's task-local propagation
// primitive: a Session attached to the context of one in-flight call is
// invisible to every other call, however the calls interleave.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/trakdhq/trakd-mcp/internal/constraint"
	"github.com/trakdhq/trakd-mcp/internal/policy"
)

// ErrNoSession indicates no session was attached to the context and no
// process-level fallback is registered.
var ErrNoSession = errors.New("no session in context")

// Session is the immutable per-caller request context: identity, upstream
// credential, granted capabilities, and session constraints. It is built
// once when the session is established and only ever read afterwards.
//
// Scopes == nil means "no explicit grant" and gates fall back to
// policy.DefaultGrantedScopes; Skills == nil means no skill-gated tool is
// allowed. The distinction between nil and empty matters.
type Session struct {
	CallerID    string
	Token       string
	Scopes      []policy.Scope
	Skills      []policy.Skill
	Constraints constraint.Set
}

// GrantedScopes returns the effective scope grant, applying the documented
// read-only default when the session declares none.
func (s *Session) GrantedScopes() []policy.Scope {
	if s == nil || s.Scopes == nil {
		return policy.DefaultGrantedScopes
	}
	return s.Scopes
}

// GrantedSkills returns the session's skill grant. There is no default.
func (s *Session) GrantedSkills() []policy.Skill {
	if s == nil {
		return nil
	}
	return s.Skills
}

type contextKey struct{}

// processSession is the last-resort fallback consulted only when the context
// carries no session. It is last-writer-wins and therefore unsafe if two
// concurrent sessions ever write it; it exists for the stdio transport,
// which guarantees a single session per process and sets it exactly once.
// The HTTP transport never touches it.
var processSession atomic.Pointer[Session]

// WithSession returns a context carrying sess. Nesting shadows correctly:
// the innermost session wins and the enclosing one is restored when the
// derived context is discarded.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session bound to ctx, falling back to the process
// session, or ErrNoSession when neither is set.
func FromContext(ctx context.Context) (*Session, error) {
	if sess := TryFromContext(ctx); sess != nil {
		return sess, nil
	}
	return nil, ErrNoSession
}

// TryFromContext is the non-erroring variant of FromContext for defensive
// code paths; it returns nil when no session is resolvable.
func TryFromContext(ctx context.Context) *Session {
	if ctx != nil {
		if sess, ok := ctx.Value(contextKey{}).(*Session); ok && sess != nil {
			return sess
		}
	}
	return processSession.Load()
}

// SetProcessSession registers the process-wide fallback session. Call it at
// most once, at session build time, and only in single-session deployments.
func SetProcessSession(sess *Session) {
	processSession.Store(sess)
}

// ResetProcessSession clears the fallback. Tests use it to isolate cases.
func ResetProcessSession() {
	processSession.Store(nil)
}
