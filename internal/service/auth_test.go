package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func signToken(secret []byte, userID uuid.UUID) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID.String()))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return userID.String() + "." + sig
}

func TestHMACAuther_Verify_ValidToken(t *testing.T) {
	secret := []byte("shared-secret")
	auther := NewHMACAuther(secret)
	userID := uuid.New()

	identity, err := auther.Verify(context.Background(), signToken(secret, userID))
	require.NoError(t, err)
	require.Equal(t, userID, identity.UserID)
}

func TestHMACAuther_Verify_WrongSecret(t *testing.T) {
	auther := NewHMACAuther([]byte("shared-secret"))
	userID := uuid.New()

	_, err := auther.Verify(context.Background(), signToken([]byte("other-secret"), userID))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACAuther_Verify_Malformed(t *testing.T) {
	auther := NewHMACAuther([]byte("shared-secret"))

	_, err := auther.Verify(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
