package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/auth"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/logging"
)

const maxLoggedArgLength = 200

// CallLogger logs every tool call with its caller, arguments and duration.
type CallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewCallLogger creates a CallLogger.
func NewCallLogger(logger *zap.Logger) *CallLogger {
	return &CallLogger{logger: logger.Named("mcp")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (c *CallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(c.beforeCallTool)
	hooks.AddAfterCallTool(c.afterCallTool)
	hooks.AddOnError(c.onError)
	return hooks
}

func (c *CallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	c.startTimes.Store(id, time.Now())
}

func (c *CallLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := c.fields(ctx, id, req)
	if result != nil && result.IsError {
		c.logger.Info("MCP tool call rejected", fields...)
		return
	}
	c.logger.Debug("MCP tool call", fields...)
}

func (c *CallLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	c.logger.Warn("MCP tool call failed", append(c.fields(ctx, id, req), logging.Error(err))...)
}

func (c *CallLogger) fields(ctx context.Context, id any, req *mcplib.CallToolRequest) []zap.Field {
	start := time.Now()
	if v, ok := c.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}
	owner := auth.OwnerFromContext(ctx)
	if owner == "" {
		owner = "anonymous"
	}
	return []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.String("owner", owner),
		zap.Any("arguments", sanitizeArguments(req.GetArguments())),
		zap.Duration("duration", time.Since(start)),
	}
}

// sanitizeArguments redacts credential-looking keys and truncates long values.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	sensitiveKeywords := []string{"password", "secret", "token", "key", "credential"}
	result := make(map[string]any, len(args))

	for k, v := range args {
		lowerKey := strings.ToLower(k)
		redact := false
		for _, keyword := range sensitiveKeywords {
			if strings.Contains(lowerKey, keyword) {
				redact = true
				break
			}
		}

		switch s, isString := v.(string); {
		case redact:
			result[k] = logging.RedactedText
		case isString:
			result[k] = logging.TruncateString(s, maxLoggedArgLength)
		default:
			result[k] = v
		}
	}
	return result
}
