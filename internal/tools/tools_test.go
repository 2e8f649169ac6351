package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mymolt/mymolt/internal/memory"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&DelegateTool{})
	tool, ok := r.Get("delegate")
	if !ok || tool.Name() != "delegate" {
		t.Fatalf("Get(delegate) = %v, %v", tool, ok)
	}
	if _, ok := r.Get("nonexistent"); ok {
		t.Error("expected nonexistent tool to be absent")
	}
}

func TestFileWriteAndReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")

	write := &FileWriteTool{AllowedPaths: []string{dir}}
	args, _ := json.Marshal(map[string]string{"path": path, "content": "hello"})
	result, err := write.Execute(context.Background(), args)
	if err != nil || !result.Success {
		t.Fatalf("write: %+v, %v", result, err)
	}

	read := &FileReadTool{AllowedPaths: []string{dir}}
	args, _ = json.Marshal(map[string]string{"path": path})
	result, err = read.Execute(context.Background(), args)
	if err != nil || !result.Success || result.Output != "hello" {
		t.Fatalf("read: %+v, %v", result, err)
	}
}

func TestFileReadDeniesOutsidePath(t *testing.T) {
	read := &FileReadTool{AllowedPaths: []string{"/home/user/project"}}
	args, _ := json.Marshal(map[string]string{"path": "/etc/passwd"})
	result, _ := read.Execute(context.Background(), args)
	if result.Success {
		t.Error("expected read outside allowed paths to fail")
	}
}

func TestMemoryStoreRecallForget(t *testing.T) {
	mem := memory.NewSimpleMemory()
	store := &MemoryStoreTool{Memory: mem}
	recall := &MemoryRecallTool{Memory: mem}
	forget := &MemoryForgetTool{Memory: mem}

	args, _ := json.Marshal(map[string]string{"key": "a", "content": "remember this", "category": "fact"})
	if result, err := store.Execute(context.Background(), args); err != nil || !result.Success {
		t.Fatalf("store: %+v, %v", result, err)
	}

	args, _ = json.Marshal(map[string]any{"query": "remember", "limit": 5})
	result, err := recall.Execute(context.Background(), args)
	if err != nil || !result.Success {
		t.Fatalf("recall: %+v, %v", result, err)
	}

	args, _ = json.Marshal(map[string]string{"key": "a"})
	if result, err := forget.Execute(context.Background(), args); err != nil || !result.Success {
		t.Fatalf("forget: %+v, %v", result, err)
	}
}

func TestDelegateAndHTTPRequestStubsReportUnavailable(t *testing.T) {
	d := &DelegateTool{}
	result, _ := d.Execute(context.Background(), nil)
	if result.Success {
		t.Error("delegate stub should report failure")
	}
	h := &HTTPRequestTool{}
	result, _ = h.Execute(context.Background(), nil)
	if result.Success {
		t.Error("http_request stub should report failure")
	}
}
