// ABOUTME: Twirp-style client for the media platform's RoomService.
// ABOUTME: Lists active rooms using a service token with the roomList grant.

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voxhive/voxhive/internal/config"
)

// ErrNoServerURL means the node config carries no media server URL.
var ErrNoServerURL = errors.New("media server URL missing")

const roomServicePath = "/twirp/livekit.RoomService/ListRooms"

// Room is the subset of room metadata the control plane surfaces.
type Room struct {
	Name            string `json:"name"`
	SID             string `json:"sid,omitempty"`
	NumParticipants int    `json:"num_participants,omitempty"`
}

type listRoomsResponse struct {
	Rooms []Room `json:"rooms"`
}

// RoomClient talks to one node's media server with that node's credentials.
type RoomClient struct {
	serverURL string
	minter    *TokenMinter
	http      *http.Client
}

// NewRoomClient builds a client for the given media settings.
func NewRoomClient(creds config.MediaSettings, ttl time.Duration) (*RoomClient, error) {
	if creds.ServerURL == "" {
		return nil, ErrNoServerURL
	}
	minter, err := NewTokenMinter(creds, ttl)
	if err != nil {
		return nil, err
	}
	return &RoomClient{
		serverURL: normalizeServerURL(creds.ServerURL),
		minter:    minter,
		http:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ListRooms returns the rooms currently active on the media server.
func (c *RoomClient) ListRooms(ctx context.Context) ([]Room, error) {
	token, err := c.minter.ServiceToken()
	if err != nil {
		return nil, fmt.Errorf("minting service token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.serverURL+roomServicePath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling room service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("room service returned %s", resp.Status)
	}

	var body listRoomsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding room list: %w", err)
	}
	return body.Rooms, nil
}

// normalizeServerURL maps websocket schemes to HTTP for the service API and
// strips any trailing slash.
func normalizeServerURL(u string) string {
	u = strings.TrimSuffix(u, "/")
	switch {
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	}
	return u
}
