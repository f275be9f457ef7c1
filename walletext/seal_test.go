package walletext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	s := &sealer{passphrase: []byte("hunter2")}

	payload := []byte("the quick brown fox")
	sealed, err := s.seal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "quick brown")

	opened, err := s.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, opened)
}

func TestSealFreshSaltPerCall(t *testing.T) {
	s := &sealer{passphrase: []byte("hunter2")}

	a, err := s.seal([]byte("same payload"))
	require.NoError(t, err)
	b, err := s.seal([]byte("same payload"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := (&sealer{passphrase: []byte("right")}).seal([]byte("data"))
	require.NoError(t, err)

	_, err = (&sealer{passphrase: []byte("wrong")}).open(sealed)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenTamperedCiphertext(t *testing.T) {
	s := &sealer{passphrase: []byte("hunter2")}
	sealed, err := s.seal([]byte("data"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = s.open(sealed)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenTruncatedSeal(t *testing.T) {
	s := &sealer{passphrase: []byte("hunter2")}
	_, err := s.open(make([]byte, sealSaltLen+sealNonceLen-1))
	assert.ErrorIs(t, err, ErrCorruptSeal)
}
