package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			attrs := []any{"direction", direction, "method", method, "session_id", safeSessionID(req)}
			if id, ok := IdentityFromContext(ctx); ok {
				attrs = append(attrs, "user_id", id.UserID)
			}
			logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(redact(safeParams(req))))...)

			result, err := next(ctx, method, req)
			if !strings.HasPrefix(method, "notifications/") {
				attrs = append(attrs, "stage", "response", "result", formatPayload(result))
				if err != nil {
					attrs = append(attrs, "error", err)
				}
				logger.Debug("mcp traffic", attrs...)
			}

			return result, err
		}
	}
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	defer func() { recover() }()
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

// maxLoggedValue caps logged string values; uploads carry whole files.
const maxLoggedValue = 256

// redact shortens long strings in tool arguments.
func redact(params any) any {
	p, ok := params.(*sdkmcp.CallToolParamsRaw)
	if !ok || p == nil || len(p.Arguments) <= maxLoggedValue {
		return params
	}
	var args map[string]any
	if err := json.Unmarshal(p.Arguments, &args); err != nil {
		return params
	}
	return map[string]any{"name": p.Name, "arguments": truncate(args)}
}

func truncate(v any) any {
	switch x := v.(type) {
	case string:
		if len(x) > maxLoggedValue {
			return fmt.Sprintf("%s...(%d bytes)", x[:maxLoggedValue], len(x))
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = truncate(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = truncate(e)
		}
		return x
	default:
		return v
	}
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
