// Package confirmation implements the human-in-the-loop confirmation gate:
// a tool that requires explicit approval blocks on a Request call until a
// listener (an interactive CLI, a push notification responder) resolves
// it, or the caller's context expires.
package confirmation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is where a Request sits in its lifecycle. Once a Request leaves
// Issued it is terminal — a gate never resurrects a timed-out or resolved
// request.
type Status int

const (
	Issued Status = iota
	Approved
	Denied
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Issued:
		return "issued"
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Request is a single confirmation ask presented to a human.
type Request struct {
	ID       string
	Tool     string
	Summary  string
	IssuedAt time.Time
	Status   Status
}

type pendingEntry struct {
	request  Request
	resultCh chan bool
}

// Gate tracks in-flight confirmation requests and fans them out to any
// number of subscribers (a TUI watcher, a notification bridge).
type Gate struct {
	mu          sync.Mutex
	pending     map[string]*pendingEntry
	subscribers map[int]chan Request
	nextSubID   int
}

// New creates an empty Gate.
func New() *Gate {
	return &Gate{
		pending:     make(map[string]*pendingEntry),
		subscribers: make(map[int]chan Request),
	}
}

// Request issues a confirmation ask and blocks until it is resolved via
// Resolve, or ctx is done. The pending entry is removed on every exit path
// — approval, denial, and timeout alike — so PendingCount never drifts.
func (g *Gate) Request(ctx context.Context, tool, summary string) (bool, error) {
	id := uuid.NewString()
	req := Request{ID: id, Tool: tool, Summary: summary, IssuedAt: time.Now().UTC(), Status: Issued}
	entry := &pendingEntry{request: req, resultCh: make(chan bool, 1)}

	g.mu.Lock()
	g.pending[id] = entry
	g.mu.Unlock()
	defer g.forget(id)

	g.broadcast(req)

	select {
	case approved := <-entry.resultCh:
		return approved, nil
	case <-ctx.Done():
		return false, fmt.Errorf("confirmation: request %s timed out or was cancelled: %w", id, ctx.Err())
	}
}

// Resolve approves or denies a pending request by ID. Returns an error if
// no such request is pending (already resolved, timed out, or never
// existed).
func (g *Gate) Resolve(id string, approved bool) error {
	g.mu.Lock()
	entry, ok := g.pending[id]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("confirmation: no pending request %s", id)
	}

	select {
	case entry.resultCh <- approved:
	default:
		// Already resolved or the requester stopped listening; nothing to do.
	}
	return nil
}

func (g *Gate) forget(id string) {
	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()
}

// Subscribe registers a channel that receives every newly issued request.
// The returned cancel function must be called to unregister the channel
// once the caller is done listening.
func (g *Gate) Subscribe() (<-chan Request, func()) {
	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	ch := make(chan Request, 16)
	g.subscribers[id] = ch
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		delete(g.subscribers, id)
		g.mu.Unlock()
	}
	return ch, cancel
}

func (g *Gate) broadcast(req Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.subscribers {
		select {
		case ch <- req:
		default:
			// A slow subscriber must never block the gate.
		}
	}
}

// GetPending returns a snapshot of every currently pending request.
func (g *Gate) GetPending() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, 0, len(g.pending))
	for _, e := range g.pending {
		out = append(out, e.request)
	}
	return out
}

// PendingCount returns the number of requests currently awaiting
// resolution.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
