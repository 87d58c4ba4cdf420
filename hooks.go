package docsync

import (
	stdsync "sync"

	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/sync"
)

// Hook function types for sync events
type (
	// UpdatedHook is called for every description written
	UpdatedHook func(entry differ.Entry)

	// FailedHook is called for every update that did not succeed
	FailedHook func(failure sync.Failure)

	// UnmatchedHook is called for every table or column without a counterpart
	UnmatchedHook func(unmatched sync.Unmatched)
)

// Hooks registers sync event callbacks. Callbacks run synchronously after
// the apply phase, in plan order.
type Hooks interface {
	OnUpdated(fn UpdatedHook)
	OnFailed(fn FailedHook)
	OnUnmatched(fn UnmatchedHook)
}

// hooks manages event callbacks
type hooks struct {
	mu          stdsync.RWMutex
	onUpdated   []UpdatedHook
	onFailed    []FailedHook
	onUnmatched []UnmatchedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnUpdated registers a callback for written descriptions
func (h *hooks) OnUpdated(fn UpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUpdated = append(h.onUpdated, fn)
}

// OnFailed registers a callback for failed updates
func (h *hooks) OnFailed(fn FailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFailed = append(h.onFailed, fn)
}

// OnUnmatched registers a callback for unmatched tables and columns
func (h *hooks) OnUnmatched(fn UnmatchedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnmatched = append(h.onUnmatched, fn)
}

type entryKey struct {
	kind      differ.Kind
	datasetID int
	columnID  int
}

func keyOf(e differ.Entry) entryKey {
	return entryKey{kind: e.Kind, datasetID: e.DatasetID, columnID: e.ColumnID}
}

// trigger fires the callbacks for a finished run. Dry runs write nothing,
// so only unmatched callbacks fire.
func (h *hooks) trigger(r *sync.Result) {
	h.mu.RLock()
	onUpdated := h.onUpdated
	onFailed := h.onFailed
	onUnmatched := h.onUnmatched
	h.mu.RUnlock()

	for _, u := range r.Unmatched {
		for _, fn := range onUnmatched {
			fn(u)
		}
	}
	if r.DryRun {
		return
	}

	failed := make(map[entryKey]bool, len(r.Failures))
	for _, f := range r.Failures {
		failed[keyOf(f.Entry)] = true
		for _, fn := range onFailed {
			fn(f)
		}
	}
	if len(onUpdated) == 0 {
		return
	}
	for _, e := range r.Entries {
		if failed[keyOf(e)] {
			continue
		}
		for _, fn := range onUpdated {
			fn(e)
		}
	}
}
