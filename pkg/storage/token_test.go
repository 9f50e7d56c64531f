package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSignerSignAndVerify(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("request-1", "pins/request-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	ref, path, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "request-1", ref)
	require.Equal(t, "pins/request-1.csv", path)
}

func TestTokenSignerRejectsTampering(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, _, err := signer.Sign("request-1", "pins/request-1.csv")
	require.NoError(t, err)

	_, _, err = signer.Verify(token + "x")
	require.Error(t, err)

	other := NewTokenSigner("other-secret", time.Hour)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestTokenSignerExpired(t *testing.T) {
	signer := NewTokenSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("request-1", "pins/request-1.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, err = signer.Verify(token)
	require.Error(t, err)
}
