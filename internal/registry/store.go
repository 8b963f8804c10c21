// ABOUTME: In-memory node config store shared by HTTP handlers and workers.
// ABOUTME: Values are copied on read and write; nothing is persisted.

package registry

import (
	"sync"

	"github.com/voxhive/voxhive/internal/config"
)

// Store holds the current config for each node. Workers read through Get on
// every validation attempt, so a Set during backoff is picked up on the next
// tick without restarting anything.
type Store struct {
	mu      sync.RWMutex
	configs map[string]config.NodeConfig
}

// NewStore creates an empty config store.
func NewStore() *Store {
	return &Store{configs: make(map[string]config.NodeConfig)}
}

// Set replaces the config for a node.
func (s *Store) Set(nodeID string, cfg config.NodeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[nodeID] = cfg
}

// Get returns the node's config and whether one is present.
func (s *Store) Get(nodeID string) (config.NodeConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[nodeID]
	return cfg, ok
}

// Delete removes the node's config, reporting whether one existed.
func (s *Store) Delete(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.configs[nodeID]
	delete(s.configs, nodeID)
	return ok
}

// Len returns the number of nodes with a stored config.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// NodeIDs returns the IDs of all nodes with a stored config.
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	return ids
}
