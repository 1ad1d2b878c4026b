package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ComponentLogger is the production Logger implementation: structured
// JSON (or human-readable) lines to an io.Writer, tagged with a
// service name and, once WithComponent is called, a component name
// following the "supplychain/<module>" convention.
type ComponentLogger struct {
	serviceName string
	component   string
	level       string
	format      string // "json" or "text"
	debug       bool
	output      io.Writer
}

// NewComponentLogger builds a ComponentLogger from a LoggingConfig.
func NewComponentLogger(cfg LoggingConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}
	return &ComponentLogger{
		serviceName: serviceName,
		level:       strings.ToLower(cfg.Level),
		format:      cfg.Format,
		debug:       strings.ToLower(cfg.Level) == "debug",
		output:      output,
	}
}

func (c *ComponentLogger) WithComponent(component string) Logger {
	clone := *c
	clone.component = component
	return &clone
}

func (c *ComponentLogger) Info(msg string, fields map[string]interface{}) {
	c.log("INFO", msg, fields, nil)
}
func (c *ComponentLogger) Error(msg string, fields map[string]interface{}) {
	c.log("ERROR", msg, fields, nil)
}
func (c *ComponentLogger) Warn(msg string, fields map[string]interface{}) {
	c.log("WARN", msg, fields, nil)
}
func (c *ComponentLogger) Debug(msg string, fields map[string]interface{}) {
	if c.debug {
		c.log("DEBUG", msg, fields, nil)
	}
}

func (c *ComponentLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.log("INFO", msg, fields, ctx)
}
func (c *ComponentLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.log("ERROR", msg, fields, ctx)
}
func (c *ComponentLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.log("WARN", msg, fields, ctx)
}
func (c *ComponentLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.debug {
		c.log("DEBUG", msg, fields, ctx)
	}
}

func (c *ComponentLogger) log(level, msg string, fields map[string]interface{}, ctx context.Context) {
	component := c.component
	if component == "" {
		component = "supplychain"
	}

	if c.format == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"level":     level,
			"service":   c.serviceName,
			"component": component,
			"message":   msg,
		}
		if reqID := requestIDFromContext(ctx); reqID != "" {
			entry["request_id"] = reqID
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(c.output, string(data))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s/%s]", time.Now().Format(time.RFC3339), level, c.serviceName, component)
	if reqID := requestIDFromContext(ctx); reqID != "" {
		fmt.Fprintf(&b, " [req=%s]", reqID)
	}
	fmt.Fprintf(&b, " %s", msg)
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintln(c.output, b.String())
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id for correlation in logs.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
