// Package tools provides the closed set of local tools MyMolt exposes
// through its Security Wrapper and MCP front door: a small, concrete
// ToolRegistry giving the security layers real call sites to gate.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mymolt/mymolt/internal/memory"
	"github.com/mymolt/mymolt/internal/toolsec"
)

// Registry holds every tool MyMolt can dispatch by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]toolsec.Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]toolsec.Tool)}
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t toolsec.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (toolsec.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultTools builds the registry of in-core tools MyMolt ships with,
// wired to mem for the memory_* tools. Mirroring the `default_tools`
// factory, it returns an unwrapped registry — the caller decides whether
// to wrap each tool in a toolsec.SecurityWrapper.
func DefaultTools(mem memory.Memory, allowedPaths []string) []toolsec.Tool {
	return []toolsec.Tool{
		&ShellTool{},
		&FileReadTool{AllowedPaths: allowedPaths},
		&FileWriteTool{AllowedPaths: allowedPaths},
		&MemoryStoreTool{Memory: mem},
		&MemoryRecallTool{Memory: mem},
		&MemoryForgetTool{Memory: mem},
		&DelegateTool{},
		&HTTPRequestTool{},
	}
}

type shellArgs struct {
	Command string `json:"command"`
}

// ShellTool runs a command through the OS shell. It performs no policy
// checks itself — that is the Security Wrapper's job.
type ShellTool struct{}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args shellArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return toolsec.Result{Success: false, Output: string(out), Error: err.Error()}, nil
	}
	return toolsec.Result{Success: true, Output: string(out)}, nil
}

type fileReadArgs struct {
	Path string `json:"path"`
}

// FileReadTool reads a file, refusing paths outside AllowedPaths (when set).
type FileReadTool struct {
	AllowedPaths []string
}

func (t *FileReadTool) Name() string { return "file_read" }

func (t *FileReadTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args fileReadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if !pathAllowed(t.AllowedPaths, args.Path) {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("path %q is outside allowed workspaces", args.Path)}, nil
	}
	data, err := os.ReadFile(args.Path)
	if err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	return toolsec.Result{Success: true, Output: string(data)}, nil
}

type fileWriteArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileWriteTool writes a file, refusing paths outside AllowedPaths.
type FileWriteTool struct {
	AllowedPaths []string
}

func (t *FileWriteTool) Name() string { return "file_write" }

func (t *FileWriteTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args fileWriteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if !pathAllowed(t.AllowedPaths, args.Path) {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("path %q is outside allowed workspaces", args.Path)}, nil
	}
	if err := os.WriteFile(args.Path, []byte(args.Content), 0o644); err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	return toolsec.Result{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path)}, nil
}

// pathAllowed reports whether path resolves to somewhere inside one of the
// allowed roots. Both sides are made absolute and compared with
// filepath.Rel so a "../" escape past an allowed root is rejected instead
// of passing a naive string-prefix check.
func pathAllowed(allowed []string, path string) bool {
	if len(allowed) == 0 {
		return true
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range allowed {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

type memoryStoreArgs struct {
	Key      string `json:"key"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// MemoryStoreTool writes to the wrapped Memory backend (typically a
// SovereignMemory, so sensitive writes are vaulted transparently).
type MemoryStoreTool struct {
	Memory memory.Memory
}

func (t *MemoryStoreTool) Name() string { return "memory_store" }

func (t *MemoryStoreTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args memoryStoreArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if err := t.Memory.Store(ctx, args.Key, args.Content, memory.Category{Kind: args.Category}); err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	return toolsec.Result{Success: true, Output: "stored"}, nil
}

type memoryRecallArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// MemoryRecallTool searches the wrapped Memory backend.
type MemoryRecallTool struct {
	Memory memory.Memory
}

func (t *MemoryRecallTool) Name() string { return "memory_recall" }

func (t *MemoryRecallTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args memoryRecallArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	entries, err := t.Memory.Recall(ctx, args.Query, args.Limit)
	if err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	return toolsec.Result{Success: true, Output: string(data)}, nil
}

type memoryForgetArgs struct {
	Key string `json:"key"`
}

// MemoryForgetTool removes a single entry from the wrapped Memory backend.
type MemoryForgetTool struct {
	Memory memory.Memory
}

func (t *MemoryForgetTool) Name() string { return "memory_forget" }

func (t *MemoryForgetTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	var args memoryForgetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	ok, err := t.Memory.Forget(ctx, args.Key)
	if err != nil {
		return toolsec.Result{Success: false, Error: err.Error()}, nil
	}
	if !ok {
		return toolsec.Result{Success: false, Error: fmt.Sprintf("no entry named %q", args.Key)}, nil
	}
	return toolsec.Result{Success: true, Output: "forgotten"}, nil
}

// DelegateTool is a minimal stub standing in for agent-to-agent delegation.
// Real sub-agent dispatch lives at the gateway/channel-adapter layer; this
// exists only to give the trust gate a real "delegate" call site.
type DelegateTool struct{}

func (t *DelegateTool) Name() string { return "delegate" }

func (t *DelegateTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	return toolsec.Result{Success: false, Error: "delegation is not available in this deployment"}, nil
}

// HTTPRequestTool is a minimal stub standing in for outbound network
// access, gated at MCP trust level since it can exfiltrate data.
type HTTPRequestTool struct{}

func (t *HTTPRequestTool) Name() string { return "http_request" }

func (t *HTTPRequestTool) Execute(ctx context.Context, raw json.RawMessage) (toolsec.Result, error) {
	return toolsec.Result{Success: false, Error: "outbound network access is not available in this deployment"}, nil
}
