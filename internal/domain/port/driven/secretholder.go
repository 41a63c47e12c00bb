package driven

// SecretHolder defines the driven port for the OS-level secure key-value store
// that holds the master key. Implementations must not cache: every Get reaches
// the backing facility.
type SecretHolder interface {
	// Get returns the stored value, or ("", nil) if no value exists for
	// (service, account).
	Get(service, account string) (string, error)

	// Set stores value under (service, account), replacing any previous value.
	// On success the value is retrievable by Get; otherwise an error is returned.
	Set(service, account, value string) error
}
