package model

import "time"

// CredentialType is the document type discriminator stored on every credential
// item. Uniqueness in the items table is enforced on (type, user, name).
const CredentialType = "credential"

// Credential holds one encrypted secret owned by one user. Ciphertext is the
// text-encoded envelope produced by the cipher; plaintext never reaches the store.
type Credential struct {
	ID         string
	Type       string
	Name       string
	User       string
	Ciphertext string
	Tags       []string
	CreatedAt  time.Time
}

// Key returns the lookup key identifying this credential.
func (c Credential) Key() CredentialKey {
	return CredentialKey{Type: c.Type, User: c.User, Name: c.Name}
}

// CredentialKey is the unique triple used to address a credential document.
type CredentialKey struct {
	Type string
	User string
	Name string
}
