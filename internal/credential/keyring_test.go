package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	token, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken("  secret  "))
	token, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	require.NoError(t, s.SetToken(""))
	token, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestGetMissingKey(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete("missing"))
}
