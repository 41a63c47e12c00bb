package driven

// Cipher performs authenticated symmetric encryption of credential payloads.
// Encrypt output is self-contained: Decrypt needs nothing but the same key.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
