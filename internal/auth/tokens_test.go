package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tokens := New([]byte("test-secret"), time.Hour)

	signed, err := tokens.Issue("ROOM42", "key-abc", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.Verify(signed, "ROOM42")
	require.NoError(t, err)
	assert.Equal(t, "key-abc", claims.PlayerKey)
	assert.Equal(t, "Alice", claims.Name)
}

func TestVerifyRejectsWrongRoom(t *testing.T) {
	tokens := New([]byte("test-secret"), time.Hour)
	signed, err := tokens.Issue("ROOM42", "key-abc", "Alice")
	require.NoError(t, err)

	_, err = tokens.Verify(signed, "OTHER")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := New([]byte("secret-a"), time.Hour).Issue("ROOM42", "k", "n")
	require.NoError(t, err)

	_, err = New([]byte("secret-b"), time.Hour).Verify(signed, "ROOM42")
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens := New([]byte("test-secret"), time.Minute)
	signed, err := tokens.Issue("ROOM42", "k", "n")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Verify(signed, "ROOM42")
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	tokens := New([]byte("test-secret"), time.Hour)
	signed, err := tokens.Issue("ROOM42", "k", "n")
	require.NoError(t, err)

	_, err = tokens.Verify(signed+"x", "ROOM42")
	assert.Error(t, err)
}
