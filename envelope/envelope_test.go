package envelope

import (
	"testing"

	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/stretchr/testify/require"
)

func deriveTestMaster(t *testing.T, password string) cryptoutils.MasterKey {
	t.Helper()
	salt, err := cryptoutils.NewSalt([]byte("envelope-test-16"))
	require.NoError(t, err)
	master, err := cryptoutils.DeriveMasterKey(password, salt)
	require.NoError(t, err)
	return master
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	master := deriveTestMaster(t, "owner password")

	shareKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	token, err := Wrap(shareKey, master)
	require.NoError(t, err)
	require.False(t, token.IsZero())

	recovered, err := Unwrap(token, master)
	require.NoError(t, err)
	require.Equal(t, shareKey, recovered)
}

func TestUnwrapWrongMasterKey(t *testing.T) {
	shareKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	token, err := Wrap(shareKey, deriveTestMaster(t, "owner password"))
	require.NoError(t, err)

	// A token minted under one account's master key must never unwrap
	// under another account's key.
	_, err = Unwrap(token, deriveTestMaster(t, "other password"))
	require.ErrorIs(t, err, cryptoutils.ErrDecryptionFailed)
}

func TestUnwrapGarbageToken(t *testing.T) {
	master := deriveTestMaster(t, "owner password")

	_, err := Unwrap(RecoveryToken("not a wire string"), master)
	require.ErrorIs(t, err, cryptoutils.ErrInvalidFormat)
}

func TestUnwrapTokenWithBadKeyMaterial(t *testing.T) {
	master := deriveTestMaster(t, "owner password")

	// A syntactically valid token whose embedded key is too short.
	wire, err := cryptoutils.Encrypt(map[string]string{"key": "c2hvcnQ="}, master)
	require.NoError(t, err)

	_, err = Unwrap(RecoveryToken(wire), master)
	require.Error(t, err)
}
