// ABOUTME: Node registry coordinating config storage and worker lifecycle.
// ABOUTME: Activation, health reporting, cleanup, and shutdown fan-out live here.

package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/supervisor"
)

// Registry errors
var (
	ErrInvalidMediaConfig = errors.New("media configuration incomplete")
)

// EntryFunc is the body of an agent worker. The lookup callback reads the
// node's current config from the store, so updates land without a restart.
type EntryFunc func(ctx context.Context, nodeID string, lookup func() (config.NodeConfig, bool))

// NodeStatus is one row of the node listing.
type NodeStatus struct {
	NodeID        string `json:"nodeId"`
	ConfigPresent bool   `json:"configPresent"`
	WorkerAlive   bool   `json:"workerAlive"`
	WorkerLabel   string `json:"workerLabel,omitempty"`
}

// NodeHealth reports one node's state for the health endpoint.
type NodeHealth struct {
	ConfigPresent bool `json:"configPresent"`
	WorkerAlive   bool `json:"workerAlive"`
}

// Health is the whole-service summary.
type Health struct {
	TotalNodes    int `json:"totalNodes"`
	ActiveWorkers int `json:"activeWorkers"`
}

// nodeEntry serializes lifecycle operations for one node. Unrelated nodes
// never contend: the registry lock only guards the entries map, not the
// grace waits inside activate and cleanup.
type nodeEntry struct {
	mu     sync.Mutex
	handle *supervisor.Handle
}

// Registry owns the config store and one worker handle per node.
type Registry struct {
	store  *Store
	sup    *supervisor.Supervisor
	entry  EntryFunc
	logger *slog.Logger
	grace  time.Duration

	mu      sync.RWMutex
	entries map[string]*nodeEntry
}

// New creates a registry. entry is invoked as the body of every worker.
func New(store *Store, sup *supervisor.Supervisor, entry EntryFunc, grace time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		sup:     sup,
		entry:   entry,
		logger:  logger.With("component", "registry"),
		grace:   grace,
		entries: make(map[string]*nodeEntry),
	}
}

func (r *Registry) entryFor(nodeID string) *nodeEntry {
	r.mu.RLock()
	e, ok := r.entries[nodeID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[nodeID]; ok {
		return e
	}
	e = &nodeEntry{handle: supervisor.NewHandle(nodeID)}
	r.entries[nodeID] = e
	return e
}

func (r *Registry) runFor(nodeID string) func(context.Context) {
	return func(ctx context.Context) {
		r.entry(ctx, nodeID, func() (config.NodeConfig, bool) {
			return r.store.Get(nodeID)
		})
	}
}

// Activate stores the node's config and (re)starts its worker. The media
// credentials are validated before anything is stored, so a failed
// activation leaves the node untouched. Activation always restarts a
// running worker so the new config takes effect immediately.
func (r *Registry) Activate(nodeID string, cfg config.NodeConfig) error {
	cfg.ApplyDefaults()
	if !cfg.Media.Valid() {
		return ErrInvalidMediaConfig
	}

	e := r.entryFor(nodeID)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.store.Set(nodeID, cfg)
	r.logger.Info("activating node", "node_id", nodeID)
	r.sup.Restart(e.handle, r.runFor(nodeID))
	return nil
}

// SetConfig stores the node's config without touching its worker. A running
// worker picks the change up through its config lookup; a future Activate
// starts one.
func (r *Registry) SetConfig(nodeID string, cfg config.NodeConfig) error {
	cfg.ApplyDefaults()
	if !cfg.Media.Valid() {
		return ErrInvalidMediaConfig
	}

	e := r.entryFor(nodeID)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.store.Set(nodeID, cfg)
	r.logger.Info("stored node config", "node_id", nodeID)
	return nil
}

// Config returns the node's stored config, if any.
func (r *Registry) Config(nodeID string) (config.NodeConfig, bool) {
	return r.store.Get(nodeID)
}

// NodeHealth reports one node's config presence and worker liveness.
func (r *Registry) NodeHealth(nodeID string) NodeHealth {
	_, present := r.store.Get(nodeID)
	h := NodeHealth{ConfigPresent: present}

	r.mu.RLock()
	e, ok := r.entries[nodeID]
	r.mu.RUnlock()
	if ok {
		h.WorkerAlive = e.handle.Alive()
	}
	return h
}

// ServiceHealth summarizes the whole registry.
func (r *Registry) ServiceHealth() Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := Health{TotalNodes: r.store.Len()}
	for _, e := range r.entries {
		if e.handle.Alive() {
			h.ActiveWorkers++
		}
	}
	return h
}

// Cleanup stops the node's worker and removes its config. Returns true when
// there was anything to clean up.
func (r *Registry) Cleanup(nodeID string) bool {
	r.mu.RLock()
	e, ok := r.entries[nodeID]
	r.mu.RUnlock()

	stopped := false
	if ok {
		e.mu.Lock()
		if e.handle.Alive() {
			graceful := r.sup.Stop(e.handle, r.grace)
			if !graceful {
				r.logger.Warn("worker still winding down after cleanup", "node_id", nodeID)
			}
			stopped = true
		}
		// the entry goes with the worker, otherwise the node lingers in
		// listings forever; a concurrent Activate gets a fresh entry
		r.mu.Lock()
		if cur, live := r.entries[nodeID]; live && cur == e {
			delete(r.entries, nodeID)
		}
		r.mu.Unlock()
		e.mu.Unlock()
	}

	removed := r.store.Delete(nodeID)
	if stopped || removed {
		r.logger.Info("cleaned up node", "node_id", nodeID, "stopped_worker", stopped, "removed_config", removed)
	}
	return stopped || removed
}

// ListNodes returns the status of every node that has a config or a worker,
// sorted by node ID.
func (r *Registry) ListNodes() []NodeStatus {
	r.mu.RLock()
	seen := make(map[string]*nodeEntry, len(r.entries))
	for id, e := range r.entries {
		seen[id] = e
	}
	r.mu.RUnlock()

	ids := make(map[string]bool)
	for _, id := range r.store.NodeIDs() {
		ids[id] = true
	}
	for id := range seen {
		ids[id] = true
	}

	statuses := make([]NodeStatus, 0, len(ids))
	for id := range ids {
		st := NodeStatus{NodeID: id}
		_, st.ConfigPresent = r.store.Get(id)
		if e, ok := seen[id]; ok {
			st.WorkerAlive = e.handle.Alive()
			st.WorkerLabel = e.handle.Label()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].NodeID < statuses[j].NodeID })
	return statuses
}

// StopAll stops every worker in parallel and waits for them or the context,
// whichever comes first. Used during process shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	entries := make([]*nodeEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *nodeEntry) {
			defer wg.Done()
			e.mu.Lock()
			defer e.mu.Unlock()
			r.sup.Stop(e.handle, r.grace)
		}(e)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.logger.Info("all workers stopped")
	case <-ctx.Done():
		r.logger.Warn("shutdown deadline reached before all workers stopped")
	}
}
