package cryptoutils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, seed byte) ShareKey {
	t.Helper()
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	key, err := NewShareKey(raw)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t, 1)

	testCases := []struct {
		name    string
		payload any
	}{
		{
			name:    "Simple string",
			payload: "a short journal note",
		},
		{
			name:    "Unicode string",
			payload: "très bien, continue comme ça ! 🎉",
		},
		{
			name: "Structured payload",
			payload: map[string]any{
				"type":      "student_share",
				"timestamp": float64(1718000000000),
				"data":      map[string]any{"students": []any{}},
			},
		},
		{
			name:    "Empty string",
			payload: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wire, err := Encrypt(tc.payload, key)
			require.NoError(t, err)
			require.Contains(t, wire, WireSeparator)

			var out any
			require.NoError(t, Decrypt(wire, key, &out))
			require.Equal(t, tc.payload, out)
		})
	}
}

func TestEncryptGeneratesFreshIV(t *testing.T) {
	key := testKey(t, 2)

	first, err := Encrypt("same payload", key)
	require.NoError(t, err)
	second, err := Encrypt("same payload", key)
	require.NoError(t, err)

	// Same plaintext and key must never produce the same wire string.
	require.NotEqual(t, first, second)

	firstIV := strings.SplitN(first, WireSeparator, 2)[0]
	secondIV := strings.SplitN(second, WireSeparator, 2)[0]
	require.NotEqual(t, firstIV, secondIV)
}

func TestDecryptWrongKey(t *testing.T) {
	wire, err := Encrypt("secret", testKey(t, 3))
	require.NoError(t, err)

	var out string
	err = Decrypt(wire, testKey(t, 4), &out)
	require.ErrorIs(t, err, ErrDecryptionFailed)
	require.Empty(t, out)
}

func TestDecryptTamperDetection(t *testing.T) {
	key := testKey(t, 5)
	wire, err := Encrypt("do not tamper with me", key)
	require.NoError(t, err)

	ivPart, ctPart, found := strings.Cut(wire, WireSeparator)
	require.True(t, found)

	flipByte := func(t *testing.T, encoded string, offset int) string {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[offset] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	t.Run("Flipped ciphertext byte", func(t *testing.T) {
		tampered := ivPart + WireSeparator + flipByte(t, ctPart, 0)
		var out string
		require.ErrorIs(t, Decrypt(tampered, key, &out), ErrDecryptionFailed)
	})

	t.Run("Flipped auth tag byte", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(ctPart)
		require.NoError(t, err)
		tampered := ivPart + WireSeparator + flipByte(t, ctPart, len(raw)-1)
		var out string
		require.ErrorIs(t, Decrypt(tampered, key, &out), ErrDecryptionFailed)
	})

	t.Run("Flipped IV byte", func(t *testing.T) {
		tampered := flipByte(t, ivPart, 3) + WireSeparator + ctPart
		var out string
		require.ErrorIs(t, Decrypt(tampered, key, &out), ErrDecryptionFailed)
	})
}

func TestDecryptFormatErrors(t *testing.T) {
	key := testKey(t, 6)

	testCases := []struct {
		name string
		wire string
	}{
		{name: "Empty string", wire: ""},
		{name: "No separator", wire: "bm9zZXBhcmF0b3I="},
		{name: "Missing ciphertext", wire: "aXZvbmx5:"},
		{name: "Missing IV", wire: ":Y3Rvbmx5"},
		{name: "Invalid IV base64", wire: "not-base64!!:Y3Rvbmx5"},
		{name: "Invalid ciphertext base64", wire: "aXZvbmx5:not-base64!!"},
		{name: "IV wrong length", wire: base64.StdEncoding.EncodeToString([]byte("short")) + ":" + base64.StdEncoding.EncodeToString([]byte("ciphertextbytes"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out any
			err := Decrypt(tc.wire, key, &out)
			require.ErrorIs(t, err, ErrInvalidFormat)
			require.NotErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestShareKeyFragmentRoundTrip(t *testing.T) {
	key, err := GenerateShareKey()
	require.NoError(t, err)

	imported, err := ShareKeyFromFragment(key.Fragment())
	require.NoError(t, err)
	require.Equal(t, key, imported)
}

func TestShareKeyFragmentInvalid(t *testing.T) {
	_, err := ShareKeyFromFragment("%%%not-base64%%%")
	require.Error(t, err)

	// Valid base64 but wrong key length.
	_, err = ShareKeyFromFragment(base64.StdEncoding.EncodeToString([]byte("too short")))
	require.Error(t, err)
}
