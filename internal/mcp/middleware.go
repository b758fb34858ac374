package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
)

type contextKey int

const identityKey contextKey = iota

var errNoIdentity = shared.New("mcp", shared.ErrForbidden, "no caller identity; configure auth.stdio_user or send an API key")

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, id user.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity, if present.
func IdentityFromContext(ctx context.Context) (user.Identity, bool) {
	id, ok := ctx.Value(identityKey).(user.Identity)
	return id, ok && id.UserID != ""
}

func callerFrom(ctx context.Context) (user.Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return user.Identity{}, errNoIdentity
	}
	return id, nil
}

// KeyResolver resolves an API key to its owner.
type KeyResolver interface {
	Resolve(ctx context.Context, token string) (user.Identity, error)
}

// authMiddleware implements bearer API key authentication as MCP middleware.
func authMiddleware(resolver KeyResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			id, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			return next(WithIdentity(ctx, id), method, req)
		}
	}
}

// UserLookup loads a user by id.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// fixedUserMiddleware runs every tool call as userID. With no userID the
// calls carry no identity and tools that need one fail.
func fixedUserMiddleware(users UserLookup, userID string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if userID == "" || method != "tools/call" {
				return next(ctx, method, req)
			}
			u, err := users.Get(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: stdio user %s: %w", userID, err)
			}
			return next(WithIdentity(ctx, u.Identity()), method, req)
		}
	}
}
