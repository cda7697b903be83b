package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trakdhq/trakd-mcp/internal/constraint"
	"github.com/trakdhq/trakd-mcp/internal/policy"
)

func TestFromContext_ErrsWithoutSessionOrFallback(t *testing.T) {
	ResetProcessSession()
	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
	require.Nil(t, TryFromContext(context.Background()))
}

func TestWithSession_RoundTrip(t *testing.T) {
	ResetProcessSession()
	sess := &Session{CallerID: "alice"}
	ctx := WithSession(context.Background(), sess)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	require.Same(t, sess, got)
}

func TestWithSession_NestedShadowingInnermostWins(t *testing.T) {
	ResetProcessSession()
	outer := &Session{CallerID: "outer"}
	inner := &Session{CallerID: "inner"}

	outerCtx := WithSession(context.Background(), outer)
	innerCtx := WithSession(outerCtx, inner)

	require.Same(t, inner, TryFromContext(innerCtx))
	// The enclosing context still resolves the outer session.
	require.Same(t, outer, TryFromContext(outerCtx))
}

func TestProcessSession_FallbackOnlyWhenContextEmpty(t *testing.T) {
	ResetProcessSession()
	t.Cleanup(ResetProcessSession)

	fallback := &Session{CallerID: "stdio"}
	SetProcessSession(fallback)

	require.Same(t, fallback, TryFromContext(context.Background()))

	bound := &Session{CallerID: "bound"}
	ctx := WithSession(context.Background(), bound)
	require.Same(t, bound, TryFromContext(ctx))
}

func TestConcurrentCalls_NeverObserveEachOthersSession(t *testing.T) {
	ResetProcessSession()

	alice := &Session{
		CallerID:    "alice",
		Scopes:      []policy.Scope{policy.ScopeEventAdmin},
		Constraints: constraint.Set{Organization: "acme"},
	}
	bob := &Session{
		CallerID:    "bob",
		Scopes:      []policy.Scope{policy.ScopeEventRead},
		Constraints: constraint.Set{Organization: "globex"},
	}

	const iterations = 200
	mismatches := make(chan string, 2*iterations)
	var wg sync.WaitGroup
	for _, sess := range []*Session{alice, bob} {
		wg.Add(1)
		go func(want *Session) {
			defer wg.Done()
			ctx := WithSession(context.Background(), want)
			for i := 0; i < iterations; i++ {
				got, err := FromContext(ctx)
				if err != nil || got != want {
					mismatches <- want.CallerID
					return
				}
				// Yield mid-flight, as a remote API call would.
				time.Sleep(time.Microsecond)
			}
		}(sess)
	}
	wg.Wait()
	close(mismatches)
	for caller := range mismatches {
		t.Errorf("caller %s observed a session that was not its own", caller)
	}
}

func TestGrantedScopes_NilMeansDefault(t *testing.T) {
	sess := &Session{}
	require.Equal(t, policy.DefaultGrantedScopes, sess.GrantedScopes())

	explicit := &Session{Scopes: []policy.Scope{}}
	require.Empty(t, explicit.GrantedScopes())
	require.NotNil(t, explicit.GrantedScopes())
}
