package security

import (
	"crypto/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper function to generate a valid key
func generateKey(t *testing.T, length int) []byte {
	t.Helper()
	key := make([]byte, length)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAESService_EncryptDecrypt_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()

	testCases := []struct {
		name    string
		keyLen  int
		payload []byte
	}{
		{name: "AES-128 (16-byte key)", keyLen: 16, payload: []byte("0551000001")},
		{name: "AES-256 (32-byte key)", keyLen: 32, payload: []byte("+213661234567")},
		{name: "Empty Payload", keyLen: 32, payload: []byte("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service, err := NewAESService(generateKey(t, tc.keyLen), &nopLogger)
			require.NoError(t, err)

			ciphertext, err := service.Encrypt(tc.payload)
			require.NoError(t, err)
			assert.NotEqual(t, tc.payload, ciphertext)

			plaintext, err := service.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, string(tc.payload), string(plaintext))
		})
	}
}

func TestAESService_Decrypt_Tampered(t *testing.T) {
	nopLogger := zerolog.Nop()
	service, err := NewAESService(generateKey(t, 32), &nopLogger)
	require.NoError(t, err)

	ciphertext, err := service.Encrypt([]byte("do not tamper with this"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] = ^ciphertext[len(ciphertext)-1]
	_, err = service.Decrypt(ciphertext)
	assert.Error(t, err)

	_, err = service.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestNewAESService_InvalidKey(t *testing.T) {
	nopLogger := zerolog.Nop()
	_, err := NewAESService([]byte("badkey"), &nopLogger)
	assert.Error(t, err)
}

func TestEncryptField_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()
	service, err := NewAESService(generateKey(t, 32), &nopLogger)
	require.NoError(t, err)

	stored, err := EncryptField(service, "0551000003")
	require.NoError(t, err)
	assert.NotContains(t, stored, "0551000003")

	plain, err := DecryptField(service, stored)
	require.NoError(t, err)
	assert.Equal(t, "0551000003", plain)

	_, err = DecryptField(service, "%%%not-base64")
	assert.Error(t, err)
}

func TestSHA256Hasher(t *testing.T) {
	h := NewSHA256Hasher()

	// Known digest of the empty string.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.Hash(""))
	assert.Equal(t, h.Hash("100200300"), h.Hash("100200300"))
	assert.NotEqual(t, h.Hash("100200300"), h.Hash("200300400"))
	assert.Len(t, h.Hash("100200300"), 64)
}
