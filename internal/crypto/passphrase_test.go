package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	salt := make([]byte, SaltSize)

	tests := []struct {
		name       string
		passphrase string
		errMsg     string
		salt       []byte
		wantErr    bool
	}{
		{name: "valid", passphrase: "correct horse battery staple", salt: salt},
		{name: "empty passphrase", passphrase: "", salt: salt, wantErr: true, errMsg: "passphrase cannot be empty"},
		{name: "short salt", passphrase: "correct horse battery staple", salt: make([]byte, 8), wantErr: true, errMsg: "salt must be 16 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.passphrase, tt.salt)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, KeySize)
		})
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	k1, err := DeriveKey("passphrase-one", salt)
	require.NoError(t, err)
	k2, err := DeriveKey("passphrase-one", salt)
	require.NoError(t, err)
	k3, err := DeriveKey("passphrase-two", salt)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestSealOpenWithPassphrase(t *testing.T) {
	plaintext := []byte(`{"tables":{"fasting_sessions":[]}}`)

	sealed, err := SealWithPassphrase(plaintext, "backup-passphrase")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(sealed), SaltSize+NonceSize+len(plaintext)+16)

	t.Run("round trip", func(t *testing.T) {
		opened, err := OpenWithPassphrase(sealed, "backup-passphrase")
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := OpenWithPassphrase(sealed, "other-passphrase")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decrypt")
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := OpenWithPassphrase(sealed[:SaltSize+4], "backup-passphrase")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too short")
	})

	t.Run("fresh salt each time", func(t *testing.T) {
		again, err := SealWithPassphrase(plaintext, "backup-passphrase")
		require.NoError(t, err)
		assert.NotEqual(t, sealed[:SaltSize], again[:SaltSize])
	})
}
