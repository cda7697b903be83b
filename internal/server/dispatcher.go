package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trakdhq/trakd-mcp/internal/audit"
	"github.com/trakdhq/trakd-mcp/internal/policy"
	"github.com/trakdhq/trakd-mcp/internal/session"
	"github.com/trakdhq/trakd-mcp/internal/telemetry"
	"github.com/trakdhq/trakd-mcp/internal/tools"
)

// maxTracedArgBytes bounds the serialized argument attribute on spans.
const maxTracedArgBytes = 2048

// ToolCaller executes one tool call and returns structured content.
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// Dispatcher orchestrates one tool call end-to-end: session resolution,
// capability gating, constraint injection, argument validation, execution,
// and uniform result translation. It holds no cross-call state; concurrent
// calls share only the read-only registry and the telemetry counters.
type Dispatcher struct {
	registry *tools.Registry
	caller   ToolCaller
	logger   zerolog.Logger
	audit    *audit.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher over a filtered registry.
func NewDispatcher(registry *tools.Registry, caller ToolCaller, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		caller:   caller,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		audit:    audit.NewLogger(logger),
		tracer:   telemetry.Tracer(),
	}
}

// Registry exposes the filtered tool set for the transports' list handlers.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Dispatch runs one tool call under the session bound to ctx and always
// returns the uniform result envelope; failures of any kind are rendered
// into it rather than returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, transport, requestID, name string, args map[string]any) callToolResult {
	started := time.Now()
	toolName := strings.TrimSpace(name)

	sess, err := session.FromContext(ctx)
	if err != nil {
		failure := classifyError(&ConfigError{
			Message:     "no session is bound to this call",
			Remediation: "the server must establish a session before dispatching tool calls",
		}, d.logger)
		d.finish(transport, requestID, toolName, "", args, failure, started)
		return resultFromError(toolName, failure)
	}

	tool, ok := d.registry.Lookup(toolName)
	if !ok {
		failure := userInputFailure(http.StatusNotFound, fmt.Sprintf("unknown tool: %s", toolName))
		d.finish(transport, requestID, toolName, sess.CallerID, args, failure, started)
		return resultFromError(toolName, failure)
	}

	if requirement := tool.Requirement(); !requirement.Allows(sess.Scopes, sess.Skills) {
		failure := userInputFailure(http.StatusForbidden,
			fmt.Sprintf("tool %s not permitted: missing required %s", tool.Name, requirement.Describe()))
		d.finish(transport, requestID, tool.Name, sess.CallerID, args, failure, started)
		return resultFromError(tool.Name, failure)
	}

	if err := policy.RequireConfirmation(tool.Name, tool.ConfirmationRequired, args); err != nil {
		failure := userInputFailure(http.StatusBadRequest, err.Error())
		d.finish(transport, requestID, tool.Name, sess.CallerID, args, failure, started)
		return resultFromError(tool.Name, failure)
	}

	// Bound constraint values overwrite whatever the caller supplied, so a
	// session pinned to one organization can never act against another.
	finalized := sess.Constraints.Inject(args, tool.InputSchema)

	if err := d.registry.ValidateArgs(tool.Name, finalized); err != nil {
		failure := userInputFailure(http.StatusBadRequest, err.Error())
		d.finish(transport, requestID, tool.Name, sess.CallerID, finalized, failure, started)
		return resultFromError(tool.Name, failure)
	}

	ctx, span := d.tracer.Start(ctx, "mcp.tool_call", trace.WithAttributes(spanAttributes(tool.Name, finalized, sess)...))
	defer span.End()

	d.logger.Info().Str("transport", transport).Str("tool", tool.Name).Msg("received tool call")

	payload, err := d.caller.Call(ctx, tool.Name, finalized)
	if err != nil {
		failure := classifyError(err, d.logger)
		span.SetStatus(codes.Error, failure.message)
		d.finish(transport, requestID, tool.Name, sess.CallerID, finalized, failure, started)
		return resultFromError(tool.Name, failure)
	}

	span.SetStatus(codes.Ok, "")
	telemetry.ToolCalls.WithLabelValues(tool.Name, "success").Inc()
	d.audit.Complete(audit.ToolCallCompletion{
		RequestID:    requestID,
		Transport:    transport,
		ToolName:     tool.Name,
		CallerID:     sess.CallerID,
		Arguments:    finalized,
		Result:       "success",
		Duration:     time.Since(started),
		ResponseCode: http.StatusOK,
	})
	return resultFromExecution(tool.Name, payload)
}

func (d *Dispatcher) finish(transport, requestID, toolName, callerID string, args map[string]any, failure classifiedError, started time.Time) {
	telemetry.ToolCalls.WithLabelValues(nonEmpty(toolName, "unknown"), outcomeLabel(failure.kind)).Inc()
	d.audit.Complete(audit.ToolCallCompletion{
		RequestID:     requestID,
		Transport:     transport,
		ToolName:      toolName,
		CallerID:      callerID,
		Arguments:     args,
		Result:        "error",
		ErrorDetail:   failure.message,
		CorrelationID: failure.correlationID,
		Duration:      time.Since(started),
		ResponseCode:  failure.status,
	})
}

func userInputFailure(status int, message string) classifiedError {
	return classifiedError{kind: errorKindUserInput, status: status, message: message}
}

func outcomeLabel(kind errorKind) string {
	switch kind {
	case errorKindUserInput:
		return "rejected"
	case errorKindConfig:
		return "config_error"
	default:
		return "internal_error"
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func spanAttributes(toolName string, args map[string]any, sess *session.Session) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("mcp.tool.name", toolName),
		attribute.String("mcp.tool.arguments", boundedJSON(args)),
	}
	if sess.Constraints.Organization != "" {
		attrs = append(attrs, attribute.String("trakd.constraint.organization", sess.Constraints.Organization))
	}
	if sess.Constraints.Project != "" {
		attrs = append(attrs, attribute.String("trakd.constraint.project", sess.Constraints.Project))
	}
	if sess.Constraints.Region != "" {
		attrs = append(attrs, attribute.String("trakd.constraint.region", sess.Constraints.Region))
	}
	return attrs
}

func boundedJSON(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("unserializable arguments: %v", err)
	}
	if len(encoded) > maxTracedArgBytes {
		return string(encoded[:maxTracedArgBytes]) + "...(truncated)"
	}
	return string(encoded)
}
