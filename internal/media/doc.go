// Package media is the boundary to the real-time media platform.
//
// It mints HS256 access tokens carrying video grants, lists active rooms
// through the platform's Twirp-style RoomService API, and owns the Session
// an agent worker holds for its lifetime. All calls are scoped to one node's
// credentials; the package never sees the config store.
package media
