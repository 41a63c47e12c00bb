package envelope

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeySource struct {
	value string
	err   error
	calls int
}

func (s *stubKeySource) Get(_, _ string) (string, error) {
	s.calls++
	return s.value, s.err
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := New(key)
	require.NoError(t, err)
	return c
}

func TestGenerateKey_Fresh(t *testing.T) {
	a, err := GenerateKey()
	require.NoError(t, err)
	b, err := GenerateKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44, "32 bytes in padded base64")
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "empty", plaintext: ""},
		{name: "short", plaintext: "s3cr3t"},
		{name: "unicode", plaintext: "pässwörd🔑"},
		{name: "long", plaintext: string(bytes.Repeat([]byte("x"), 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := c.Encrypt([]byte(tt.plaintext))
			require.NoError(t, err)

			opened, err := c.Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(opened))
		})
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a[:24], b[:24], "nonces must differ")
}

func TestDecrypt_TamperDetection(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.Encrypt([]byte("tamper-me"))
	require.NoError(t, err)

	for i := range sealed {
		for bit := 0; bit < 8; bit++ {
			tampered := bytes.Clone(sealed)
			tampered[i] ^= 1 << bit

			plaintext, err := c.Decrypt(tampered)
			require.ErrorIs(t, err, ErrAuthentication, "byte %d bit %d", i, bit)
			require.Nil(t, plaintext)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := newTestCipher(t).Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = newTestCipher(t).Decrypt(sealed)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecrypt_Malformed(t *testing.T) {
	c := newTestCipher(t)

	for _, n := range []int{0, 1, 23, 39} {
		_, err := c.Decrypt(make([]byte, n))
		assert.ErrorIs(t, err, ErrFormat, "length %d", n)
	}
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New("not base64!")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLoad_KeyMissing(t *testing.T) {
	src := &stubKeySource{}

	c, err := Load(src, "keypass", "master_key")

	assert.ErrorIs(t, err, ErrKeyMissing)
	assert.Nil(t, c)
	assert.Equal(t, 1, src.calls)
}

func TestLoad_SourceError(t *testing.T) {
	boom := errors.New("keychain locked")
	_, err := Load(&stubKeySource{err: boom}, "keypass", "master_key")
	assert.ErrorIs(t, err, boom)
}

func TestLoad_SameKeyInteroperates(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	a, err := Load(&stubKeySource{value: key}, "keypass", "master_key")
	require.NoError(t, err)
	b, err := Load(&stubKeySource{value: key}, "keypass", "master_key")
	require.NoError(t, err)

	sealed, err := a.Encrypt([]byte("shared"))
	require.NoError(t, err)
	opened, err := b.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(opened))
}
