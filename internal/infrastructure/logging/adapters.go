package logging

import (
	"fmt"

	"github.com/gocolly/colly/v2/debug"
)

// GooseAdapter routes goose migration output through Logger
type GooseAdapter struct {
	logger Logger
}

// NewGooseAdapter creates a goose logger backed by our structured logger
func NewGooseAdapter(logger Logger) *GooseAdapter {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &GooseAdapter{logger: logger}
}

// Printf logs migration progress at INFO level
func (g *GooseAdapter) Printf(format string, v ...interface{}) {
	g.logger.Info(fmt.Sprintf(format, v...), "source", "goose")
}

// Fatalf logs at ERROR level. goose calls it on unrecoverable migration state; we never exit the process here.
func (g *GooseAdapter) Fatalf(format string, v ...interface{}) {
	g.logger.Error(fmt.Sprintf(format, v...), "source", "goose", "level", "fatal")
}

// CollyDebugger forwards collector events to Logger at DEBUG level
type CollyDebugger struct {
	logger Logger
}

// NewCollyDebugger creates a colly debugger backed by our structured logger
func NewCollyDebugger(logger Logger) *CollyDebugger {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &CollyDebugger{logger: logger}
}

// Init implements debug.Debugger
func (c *CollyDebugger) Init() error { return nil }

// Event implements debug.Debugger
func (c *CollyDebugger) Event(e *debug.Event) {
	fields := []interface{}{
		"source", "colly",
		"event", e.Type,
		"collector_id", e.CollectorID,
		"request_id", e.RequestID,
	}
	for k, v := range e.Values {
		fields = append(fields, k, v)
	}
	c.logger.Debug("collector event", fields...)
}
