// ABOUTME: Tests for node activation, health, cleanup, and shutdown fan-out.
// ABOUTME: Workers are stubbed with a context-blocking entry func.

package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/supervisor"
)

func validConfig() config.NodeConfig {
	return config.NodeConfig{
		LLM: config.ProviderSettings{Provider: "groq", APIKey: "llm-key"},
		Media: config.MediaSettings{
			APIKey:    "media-key",
			Secret:    "media-secret",
			ServerURL: "https://media.example.com",
		},
	}
}

// blockingEntry counts worker starts and blocks until cancelled.
func blockingEntry(starts *atomic.Int32) EntryFunc {
	return func(ctx context.Context, nodeID string, lookup func() (config.NodeConfig, bool)) {
		starts.Add(1)
		<-ctx.Done()
	}
}

func newTestRegistry(entry EntryFunc) *Registry {
	logger := slog.Default()
	sup := supervisor.New(logger, 100*time.Millisecond, time.Millisecond)
	return New(NewStore(), sup, entry, 100*time.Millisecond, logger)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within a second")
}

func TestActivateStartsWorkerAndStoresConfig(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	require.NoError(t, r.Activate("node-1", validConfig()))

	cfg, ok := r.Config("node-1")
	require.True(t, ok)
	assert.Equal(t, "groq", cfg.LLM.Provider)

	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })
	assert.Equal(t, int32(1), starts.Load())
}

func TestActivateRejectsIncompleteMediaConfig(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	cfg := validConfig()
	cfg.Media.Secret = ""
	err := r.Activate("node-1", cfg)
	assert.ErrorIs(t, err, ErrInvalidMediaConfig)

	// a failed activation leaves no trace
	_, ok := r.Config("node-1")
	assert.False(t, ok)
	assert.False(t, r.NodeHealth("node-1").WorkerAlive)
	assert.Equal(t, int32(0), starts.Load())
}

func TestActivateAppliesProviderDefaults(t *testing.T) {
	r := newTestRegistry(blockingEntry(new(atomic.Int32)))

	cfg := validConfig()
	cfg.LLM.Provider = ""
	require.NoError(t, r.Activate("node-1", cfg))

	stored, ok := r.Config("node-1")
	require.True(t, ok)
	assert.Equal(t, config.BaselineProvider, stored.LLM.Provider)
	r.Cleanup("node-1")
}

func TestReactivateRestartsWorker(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })

	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return starts.Load() == 2 })
	assert.True(t, r.NodeHealth("node-1").WorkerAlive)
	r.Cleanup("node-1")
}

func TestSetConfigDoesNotStartWorker(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	require.NoError(t, r.SetConfig("node-1", validConfig()))

	_, ok := r.Config("node-1")
	assert.True(t, ok)
	assert.False(t, r.NodeHealth("node-1").WorkerAlive)
	assert.Equal(t, int32(0), starts.Load())
}

func TestWorkerLookupSeesConfigUpdates(t *testing.T) {
	got := make(chan string, 1)
	entry := func(ctx context.Context, nodeID string, lookup func() (config.NodeConfig, bool)) {
		// poll until the updated provider shows up
		for {
			if cfg, ok := lookup(); ok && cfg.LLM.Provider == "openai" {
				got <- cfg.LLM.Provider
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
	r := newTestRegistry(entry)

	require.NoError(t, r.Activate("node-1", validConfig()))

	updated := validConfig()
	updated.LLM.Provider = "openai"
	require.NoError(t, r.SetConfig("node-1", updated))

	select {
	case p := <-got:
		assert.Equal(t, "openai", p)
	case <-time.After(time.Second):
		t.Fatal("worker never saw the updated config")
	}
}

func TestCleanup(t *testing.T) {
	r := newTestRegistry(blockingEntry(new(atomic.Int32)))

	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })

	assert.True(t, r.Cleanup("node-1"))

	h := r.NodeHealth("node-1")
	assert.False(t, h.ConfigPresent)
	assert.False(t, h.WorkerAlive)

	// teardown is complete: the node no longer appears in listings
	assert.Empty(t, r.ListNodes())

	// second cleanup has nothing left to do
	assert.False(t, r.Cleanup("node-1"))
	assert.False(t, r.Cleanup("never-seen"))
}

func TestCleanupThenReactivate(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })
	require.True(t, r.Cleanup("node-1"))

	// a cleaned-up node can come back with a fresh entry
	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })

	nodes := r.ListNodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "node-1", nodes[0].NodeID)
	assert.True(t, nodes[0].WorkerAlive)

	r.Cleanup("node-1")
}

func TestServiceHealthAndListNodes(t *testing.T) {
	r := newTestRegistry(blockingEntry(new(atomic.Int32)))

	require.NoError(t, r.Activate("node-b", validConfig()))
	require.NoError(t, r.SetConfig("node-a", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-b").WorkerAlive })

	h := r.ServiceHealth()
	assert.Equal(t, 2, h.TotalNodes)
	assert.Equal(t, 1, h.ActiveWorkers)

	nodes := r.ListNodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "node-a", nodes[0].NodeID)
	assert.True(t, nodes[0].ConfigPresent)
	assert.False(t, nodes[0].WorkerAlive)
	assert.Equal(t, "node-b", nodes[1].NodeID)
	assert.True(t, nodes[1].WorkerAlive)
	assert.Equal(t, "agent-node-b", nodes[1].WorkerLabel)

	r.Cleanup("node-b")
}

func TestConcurrentActivationsDistinctNodes(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	var wg sync.WaitGroup
	ids := []string{"n1", "n2", "n3", "n4", "n5"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, r.Activate(id, validConfig()))
		}(id)
	}
	wg.Wait()

	waitFor(t, func() bool { return r.ServiceHealth().ActiveWorkers == len(ids) })
	assert.Equal(t, int32(len(ids)), starts.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.StopAll(ctx)
	assert.Equal(t, 0, r.ServiceHealth().ActiveWorkers)
}

func TestConcurrentActivationsSameNode(t *testing.T) {
	var starts atomic.Int32
	r := newTestRegistry(blockingEntry(&starts))

	cfgA := validConfig()
	cfgA.LLM.Provider = "openai"
	cfgB := validConfig()
	cfgB.LLM.Provider = "anthropic"

	var wg sync.WaitGroup
	for _, cfg := range []config.NodeConfig{cfgA, cfgB} {
		wg.Add(1)
		go func(cfg config.NodeConfig) {
			defer wg.Done()
			assert.NoError(t, r.Activate("node-1", cfg))
		}(cfg)
	}
	wg.Wait()

	// racing activations of the same node settle on exactly one live worker
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })
	assert.Equal(t, 1, r.ServiceHealth().ActiveWorkers)

	nodes := r.ListNodes()
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].WorkerAlive)

	// the stored config is whichever activation won, never a blend
	stored, ok := r.Config("node-1")
	require.True(t, ok)
	assert.Contains(t, []string{"openai", "anthropic"}, stored.LLM.Provider)

	r.Cleanup("node-1")
}

func TestStopAllHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	entry := func(ctx context.Context, nodeID string, lookup func() (config.NodeConfig, bool)) {
		<-ctx.Done()
		<-release
	}
	r := newTestRegistry(entry)

	require.NoError(t, r.Activate("node-1", validConfig()))
	waitFor(t, func() bool { return r.NodeHealth("node-1").WorkerAlive })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	r.StopAll(ctx)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)
}
