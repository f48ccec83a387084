package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	v, err := NewKeyVault("master-secret")
	require.NoError(t, err)

	envelope, err := v.Seal("eldorado-api-key-123")
	require.NoError(t, err)

	got, err := v.Open(envelope)
	require.NoError(t, err)
	assert.Equal(t, "eldorado-api-key-123", got)
}

func TestOpenWrongSecretFails(t *testing.T) {
	v1, _ := NewKeyVault("secret-one")
	v2, _ := NewKeyVault("secret-two")

	envelope, err := v1.Seal("some-key")
	require.NoError(t, err)

	_, err = v2.Open(envelope)
	assert.Error(t, err)
}

func TestSealProducesFreshEnvelopes(t *testing.T) {
	v, _ := NewKeyVault("master-secret")

	a, err := v.Seal("same-key")
	require.NoError(t, err)
	b, err := v.Seal("same-key")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "salt and nonce must be random per seal")
}

func TestOpenRejectsGarbage(t *testing.T) {
	v, _ := NewKeyVault("master-secret")

	_, err := v.Open([]byte("not json"))
	assert.Error(t, err)

	_, err = v.Open([]byte(`{"version":99}`))
	assert.Error(t, err)
}

func TestNewKeyVaultEmptySecret(t *testing.T) {
	_, err := NewKeyVault("")
	assert.Error(t, err)
}

func TestHashKey(t *testing.T) {
	h := HashKey("abc")
	assert.Len(t, h, keyHashLen)
	assert.Equal(t, h, HashKey("abc"))
	assert.NotEqual(t, h, HashKey("abd"))
}
