// ABOUTME: Tests for the worker-owned media session.
// ABOUTME: Covers connect failure, serve cancellation, and link loss.

package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConnectFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess, err := NewSession(SessionOptions{
		NodeID: "node-1",
		Media:  credsFor(srv.URL),
	})
	require.NoError(t, err)

	err = sess.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestSessionServeStopsOnCancel(t *testing.T) {
	srv := newRoomServer(t, nil)
	defer srv.Close()

	sess, err := NewSession(SessionOptions{
		NodeID:    "node-1",
		Media:     credsFor(srv.URL),
		Keepalive: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Serve(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestSessionServeReportsLinkLoss(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "gone", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rooms":[]}`))
	}))
	defer srv.Close()

	sess, err := NewSession(SessionOptions{
		NodeID:    "node-1",
		Media:     credsFor(srv.URL),
		Keepalive: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	healthy.Store(false)
	err = sess.Serve(context.Background())
	assert.ErrorIs(t, err, ErrLinkLost)
}
