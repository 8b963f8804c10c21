// ABOUTME: Access token minting for the real-time media platform
// ABOUTME: Uses HS256 signing with per-node API key and secret

package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxhive/voxhive/internal/config"
)

// Token errors
var (
	ErrMissingCredentials = errors.New("media credentials missing")
	ErrMissingIdentity    = errors.New("identity is required")
)

// VideoGrant describes what the token holder may do on the platform.
type VideoGrant struct {
	RoomJoin bool   `json:"roomJoin,omitempty"`
	RoomList bool   `json:"roomList,omitempty"`
	Room     string `json:"room,omitempty"`
}

// tokenClaims is the platform's documented JWT payload: the API key as
// issuer, the participant identity as subject, and a video grant object.
type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
}

// TokenMinter issues access tokens signed with one node's media credentials.
type TokenMinter struct {
	apiKey string
	secret []byte
	ttl    time.Duration
}

// NewTokenMinter creates a minter for the given media credentials.
func NewTokenMinter(creds config.MediaSettings, ttl time.Duration) (*TokenMinter, error) {
	if creds.APIKey == "" || creds.Secret == "" {
		return nil, ErrMissingCredentials
	}
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return &TokenMinter{
		apiKey: creds.APIKey,
		secret: []byte(creds.Secret),
		ttl:    ttl,
	}, nil
}

// RoomJoinToken mints a token allowing the identity to join the given room.
func (m *TokenMinter) RoomJoinToken(identity, room string) (string, error) {
	if identity == "" {
		return "", ErrMissingIdentity
	}
	return m.mint(identity, VideoGrant{RoomJoin: true, Room: room})
}

// ServiceToken mints a short-lived token for server-to-server calls such as
// room listing.
func (m *TokenMinter) ServiceToken() (string, error) {
	return m.mint(m.apiKey, VideoGrant{RoomList: true})
}

func (m *TokenMinter) mint(identity string, grant VideoGrant) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name:  identity,
		Video: grant,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
