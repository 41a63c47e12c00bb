package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// --- Mock implementations shared by the service tests ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryHolder is an in-memory SecretHolder.
type memoryHolder struct {
	values map[string]string
	getErr error
	setErr error
}

func newMemoryHolder() *memoryHolder {
	return &memoryHolder{values: map[string]string{}}
}

func (h *memoryHolder) Get(service, account string) (string, error) {
	if h.getErr != nil {
		return "", h.getErr
	}
	return h.values[service+"/"+account], nil
}

func (h *memoryHolder) Set(service, account, value string) error {
	if h.setErr != nil {
		return h.setErr
	}
	h.values[service+"/"+account] = value
	return nil
}

// mockCredentialStore enforces (type, user, name) uniqueness like a unique index
// and counts every call so tests can assert the store was never reached.
type mockCredentialStore struct {
	mu      sync.Mutex
	docs    map[model.CredentialKey]model.Credential
	nextID  int
	calls   int
	findErr error
	// stolen simulates a concurrent delete between FindOne and DeleteOne.
	stolen bool
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{docs: map[model.CredentialKey]model.Credential{}}
}

func (m *mockCredentialStore) Insert(_ context.Context, cred model.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.docs[cred.Key()]; ok {
		return "", driven.ErrDuplicateKey
	}
	m.nextID++
	cred.ID = strconv.Itoa(m.nextID)
	m.docs[cred.Key()] = cred
	return cred.ID, nil
}

func (m *mockCredentialStore) FindOne(_ context.Context, key model.CredentialKey) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	cred, ok := m.docs[key]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (m *mockCredentialStore) DeleteOne(_ context.Context, key model.CredentialKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.stolen {
		delete(m.docs, key)
		return 0, nil
	}
	if _, ok := m.docs[key]; !ok {
		return 0, nil
	}
	delete(m.docs, key)
	return 1, nil
}

// mockDeviceStore keeps devices in insertion order and sorts on Find.
type mockDeviceStore struct {
	devices []model.Device
	nextID  int
	calls   int
	stolen  bool
}

func (m *mockDeviceStore) ParseID(raw string) (string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return "", driven.ErrInvalidID
	}
	return strconv.Itoa(n), nil
}

func (m *mockDeviceStore) Insert(_ context.Context, device model.Device) (string, error) {
	m.calls++
	m.nextID++
	device.ID = strconv.Itoa(m.nextID)
	m.devices = append(m.devices, device)
	return device.ID, nil
}

func (m *mockDeviceStore) FindOne(_ context.Context, id string) (*model.Device, error) {
	m.calls++
	for _, d := range m.devices {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

func (m *mockDeviceStore) Find(_ context.Context) ([]model.Device, error) {
	m.calls++
	out := make([]model.Device, len(m.devices))
	copy(out, m.devices)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (m *mockDeviceStore) DeleteOne(_ context.Context, id string) (int64, error) {
	m.calls++
	for i, d := range m.devices {
		if d.ID == id {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			if m.stolen {
				return 0, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

// mockConfirmer answers every prompt with answer and records the prompts.
type mockConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (m *mockConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	m.prompts = append(m.prompts, prompt)
	return m.answer, m.err
}

type stubUsers struct {
	name string
	err  error
}

func (s stubUsers) CurrentUser() (string, error) {
	return s.name, s.err
}

var errStoreDown = errors.New("store unavailable")
