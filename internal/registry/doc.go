// Package registry is the per-node control plane: it stores node configs
// and coordinates the lifecycle of one agent worker per node.
//
// Lifecycle operations for a node are serialized on a per-node entry, so a
// slow grace wait on one node never blocks activations on another. The
// config store is shared with running workers, which re-read it through a
// lookup callback rather than capturing a snapshot at start.
package registry
