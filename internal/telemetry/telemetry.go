// Package telemetry accumulates simple, in-process counters for the
// Observer fan-out: how many tool calls were gated, denied, or resulted
// in a vault write. This is ambient operational visibility, not a metrics
// product — plain counters, no metrics backend.
package telemetry

import "sync"

// ToolTelemetry holds the counters collected for a single tool name.
type ToolTelemetry struct {
	ToolName      string `json:"tool_name"`
	CallCount     int    `json:"call_count"`
	DeniedCount   int    `json:"denied_count"`
	ConfirmCount  int    `json:"confirm_count"`
	VaultedCount  int    `json:"vaulted_count"`
}

// Collector accumulates per-tool counters in a thread-safe manner.
type Collector struct {
	mu      sync.Mutex
	entries map[string]*ToolTelemetry
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{entries: make(map[string]*ToolTelemetry)}
}

func (c *Collector) entry(toolName string) *ToolTelemetry {
	e, ok := c.entries[toolName]
	if !ok {
		e = &ToolTelemetry{ToolName: toolName}
		c.entries[toolName] = e
	}
	return e
}

// RecordCall counts one invocation of a tool, whether allowed or denied.
func (c *Collector) RecordCall(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(toolName).CallCount++
}

// RecordDenied counts one policy or trust-gate denial of a tool.
func (c *Collector) RecordDenied(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(toolName).DeniedCount++
}

// RecordConfirmRequested counts one confirmation ask issued for a tool.
func (c *Collector) RecordConfirmRequested(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(toolName).ConfirmCount++
}

// RecordVaulted counts one SIGIL interception that vaulted content
// originating from a tool call (typically memory_store).
func (c *Collector) RecordVaulted(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(toolName).VaultedCount++
}

// Snapshot returns a copy of every tool's current counters.
func (c *Collector) Snapshot() []ToolTelemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolTelemetry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	return out
}
