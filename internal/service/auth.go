package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Auther.Verify for any token that does
// not carry a verifiable, well-formed identity.
var ErrInvalidToken = errors.New("service: invalid token")

// Identity is the verified caller identity an Auther yields — UserID is
// what the core actually depends on, DisplayName is a convenience a real
// identity provider can populate for free at verification time.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
}

// Auther verifies the token carried in a connection handshake (an
// authorization header or a short-lived query parameter) and yields
// the caller's identity. ctx threads through exactly like every other
// collaborator interface in this tree (Heartbeat, Deliverer,
// MessageStore, presence.Store) so a real identity-provider client can
// cancel its network call. Login, refresh-token issuance, and session
// storage are out of scope — the core only ever consumes a verified
// identity (spec.md §1 "auth collaborator").
type Auther interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// hmacAuther is a stand-in for the real auth collaborator: a token is
// "<user_id>.<base64url(hmac_sha256(user_id, secret))>". This is
// intentionally minimal — production systems exchange these for
// actual access tokens issued by whatever identity provider is out of
// this module's scope. The token carries no display name, so
// Identity.DisplayName comes back empty here; a real IDP swap-in is
// expected to fill it from its own claims.
type hmacAuther struct {
	secret []byte
}

// NewHMACAuther builds an Auther around a shared secret. Tokens are
// minted out of band (by whatever issues them in production) using the
// same secret.
func NewHMACAuther(secret []byte) *hmacAuther {
	return &hmacAuther{secret: secret}
}

func (a *hmacAuther) Verify(ctx context.Context, token string) (Identity, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(parts[0]))
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID}, nil
}
