package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/keypass/internal/adapter/driving/cli"
	"github.com/ericfisherdev/keypass/internal/application"
	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/envelope"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// --- Mock implementations ---

type fakeKeys struct {
	exists  bool
	initErr error
	resets  []bool
}

func (f *fakeKeys) HasKey() (bool, error) {
	return f.exists, nil
}

func (f *fakeKeys) Init(reset bool) error {
	f.resets = append(f.resets, reset)
	return f.initErr
}

type addCall struct {
	name, user, secret string
	tags               []string
}

type fakeCredentials struct {
	added     []addCall
	addID     string
	addErr    error
	secret    string
	getErr    error
	deleteErr error
	deleted   []string
	forced    []bool
}

func (f *fakeCredentials) Add(_ context.Context, name, user, secret string, tags []string) (string, error) {
	f.added = append(f.added, addCall{name: name, user: user, secret: secret, tags: tags})
	return f.addID, f.addErr
}

func (f *fakeCredentials) Get(_ context.Context, _, _ string) (string, error) {
	return f.secret, f.getErr
}

func (f *fakeCredentials) Delete(_ context.Context, name, _ string, force bool) error {
	f.deleted = append(f.deleted, name)
	f.forced = append(f.forced, force)
	return f.deleteErr
}

type fakeDevices struct {
	registered []model.Device
	devices    []model.Device
	removeErr  error
}

func (f *fakeDevices) Register(_ context.Context, mac, ip, hostname string) (string, error) {
	f.registered = append(f.registered, model.Device{MAC: mac, IP: ip, Hostname: hostname})
	return "7", nil
}

func (f *fakeDevices) List(_ context.Context) ([]model.Device, error) {
	return f.devices, nil
}

func (f *fakeDevices) Remove(_ context.Context, _ string, _ bool) error {
	return f.removeErr
}

type harness struct {
	keys     *fakeKeys
	creds    *fakeCredentials
	devices  *fakeDevices
	connects int
	connErr  error
	stdin    string
}

func newHarness() *harness {
	return &harness{keys: &fakeKeys{}, creds: &fakeCredentials{addID: "1"}, devices: &fakeDevices{}}
}

func (h *harness) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut, prompts bytes.Buffer

	connect := func(context.Context) (*cli.Services, error) {
		h.connects++
		if h.connErr != nil {
			return nil, h.connErr
		}
		return &cli.Services{Credentials: h.creds, Devices: h.devices}, nil
	}
	prompter := cli.NewPrompter(strings.NewReader(h.stdin), &prompts)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := cli.NewApp(h.keys, connect, prompter, "OS keyring", logger)

	code = app.Run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// --- init ---

func TestInit(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "init")

	assert.Equal(t, 0, code)
	assert.Equal(t, "✅ Master key generated and stored in OS keyring.\n", out)
	assert.Equal(t, []bool{false}, h.keys.resets)
	assert.Zero(t, h.connects, "init never opens the document store")
}

func TestInit_KeyExists(t *testing.T) {
	h := newHarness()
	h.keys.initErr = application.ErrKeyExists

	code, out, _ := h.run(t, "init")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Master key already exists. Use --reset to overwrite.")
}

func TestInit_ResetRequiresConfirmation(t *testing.T) {
	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantResets []bool
		wantOut    string
	}{
		{name: "confirmed", stdin: "y\n", args: []string{"init", "--reset"}, wantResets: []bool{true}, wantOut: "Master key generated"},
		{name: "declined", stdin: "n\n", args: []string{"init", "--reset"}, wantResets: nil, wantOut: "Reset cancelled."},
		{name: "no answer", stdin: "", args: []string{"init", "--reset"}, wantResets: nil, wantOut: "Reset cancelled."},
		{name: "forced", stdin: "", args: []string{"init", "--reset", "--force"}, wantResets: []bool{true}, wantOut: "Master key generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.keys.exists = true
			h.stdin = tt.stdin

			code, out, _ := h.run(t, tt.args...)

			assert.Equal(t, 0, code)
			assert.Contains(t, out, tt.wantOut)
			assert.Equal(t, tt.wantResets, h.keys.resets)
		})
	}
}

func TestInit_ResetWithoutKeySkipsPrompt(t *testing.T) {
	h := newHarness()

	code, _, _ := h.run(t, "init", "--reset")

	assert.Equal(t, 0, code)
	assert.Equal(t, []bool{true}, h.keys.resets)
}

// --- credentials ---

func TestAddCred(t *testing.T) {
	h := newHarness()
	h.stdin = "s3cr3t\n"
	h.creds.addID = "42"

	code, out, _ := h.run(t, "add-cred", "db", "-t", "prod", "--tag", "pg", "-u", "alice")

	assert.Equal(t, 0, code)
	assert.Equal(t, "Saved credential 'db' (id: 42)\n", out)
	require.Len(t, h.creds.added, 1)
	assert.Equal(t, addCall{name: "db", user: "alice", secret: "s3cr3t", tags: []string{"prod", "pg"}}, h.creds.added[0])
}

func TestAddCred_EmptySecret(t *testing.T) {
	h := newHarness()
	h.creds.addErr = application.ErrEmptySecret

	code, out, _ := h.run(t, "add-cred", "db")

	assert.Equal(t, 0, code)
	assert.Equal(t, "Empty secret - aborting.\n", out)
}

func TestAddCred_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{
			name:    "duplicate",
			err:     &application.CredentialExistsError{Name: "db", Owner: "alice"},
			wantErr: "❌ Credential 'db' already exists for user 'alice'.",
		},
		{
			name:    "key missing",
			err:     application.ErrKeyMissing,
			wantErr: "No master key found. Run: keypass init",
		},
		{
			name:    "unknown owner",
			err:     application.ErrUnknownOwner,
			wantErr: "Could not determine the OS user. Pass --user.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.stdin = "x\n"
			h.creds.addErr = tt.err

			code, _, stderr := h.run(t, "add-cred", "db")

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestGetCred(t *testing.T) {
	h := newHarness()
	h.creds.secret = "s3cr3t"

	code, out, _ := h.run(t, "get-cred", "db")

	assert.Equal(t, 0, code)
	assert.Equal(t, "🔓 db: s3cr3t\n", out)
}

func TestGetCred_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{name: "not found", err: fmt.Errorf("credential %q: %w", "db", application.ErrNotFound), wantErr: "❌ Credential not found."},
		{
			name:    "tampered",
			err:     fmt.Errorf("%w: credential %q: %w", application.ErrDecryptionFailed, "db", envelope.ErrAuthentication),
			wantErr: "❌ Failed to decrypt secret: credential \"db\": ciphertext failed authentication",
		},
		{name: "key missing", err: application.ErrKeyMissing, wantErr: "No master key found."},
		{name: "unexpected", err: errors.New("disk on fire"), wantErr: "❌ Error: disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.creds.getErr = tt.err

			code, out, stderr := h.run(t, "get-cred", "db")

			assert.Equal(t, 1, code)
			assert.Empty(t, out)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestDeleteCred(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		err      error
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "deleted", args: []string{"delete-cred", "db", "-f"}, wantOut: "✅ Credential 'db' deleted successfully."},
		{name: "cancelled", args: []string{"delete-cred", "db"}, err: application.ErrCancelled, wantOut: "❌ Deletion cancelled."},
		{name: "not found", args: []string{"delete-cred", "db"}, err: application.ErrNotFound, wantCode: 1, wantErr: "❌ Credential not found."},
		{name: "race", args: []string{"delete-cred", "db", "-f"}, err: application.ErrDeleteFailed, wantCode: 1, wantErr: "❌ Failed to delete credential."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.creds.deleteErr = tt.err

			code, out, stderr := h.run(t, tt.args...)

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestDeleteCred_ForceFlagPassedThrough(t *testing.T) {
	h := newHarness()

	_, _, _ = h.run(t, "delete-cred", "db", "--force")
	_, _, _ = h.run(t, "delete-cred", "db")

	assert.Equal(t, []bool{true, false}, h.creds.forced)
}

// --- devices ---

func TestAddDevice(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "add-device", "AA:BB", "10.0.0.5", "nas")

	assert.Equal(t, 0, code)
	assert.Equal(t, "Device registered (id: 7)\n", out)
	assert.Equal(t, []model.Device{{MAC: "AA:BB", IP: "10.0.0.5", Hostname: "nas"}}, h.devices.registered)
}

func TestAddDevice_HostnameOptional(t *testing.T) {
	h := newHarness()

	code, _, _ := h.run(t, "add-device", "aa", "10.0.0.5")

	assert.Equal(t, 0, code)
	require.Len(t, h.devices.registered, 1)
	assert.Empty(t, h.devices.registered[0].Hostname)
}

func TestAddDevice_ArgCount(t *testing.T) {
	h := newHarness()

	code, _, stderr := h.run(t, "add-device", "aa")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "accepts between 2 and 3 arg(s)")
	assert.Zero(t, h.connects)
}

func TestListDevices(t *testing.T) {
	h := newHarness()
	h.devices.devices = []model.Device{
		{ID: "2", MAC: "bb", IP: "10.0.0.2", Hostname: "nas", RegisteredAt: time.Date(2026, 10, 15, 9, 0, 1, 0, time.UTC)},
		{ID: "1", MAC: "aa", IP: "10.0.0.1", RegisteredAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)},
	}

	code, out, _ := h.run(t, "list-devices")

	assert.Equal(t, 0, code)
	assert.Equal(t,
		"- id=2 mac=bb ip=10.0.0.2 hostname=nas registered_at=2026-10-15T09:00:01Z\n"+
			"- id=1 mac=aa ip=10.0.0.1 hostname= registered_at=2026-10-15T09:00:00Z\n",
		out)
}

func TestListDevices_Empty(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "list-devices")

	assert.Equal(t, 0, code)
	assert.Equal(t, "No devices registered.\n", out)
}

func TestRemoveDevice(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "removed", wantOut: "✅ Device 7 removed successfully."},
		{name: "invalid id", err: application.ErrInvalidID, wantCode: 1, wantErr: "❌ Invalid device ID format."},
		{name: "not found", err: application.ErrNotFound, wantCode: 1, wantErr: "❌ Device not found."},
		{name: "cancelled", err: application.ErrCancelled, wantOut: "❌ Removal cancelled."},
		{name: "race", err: application.ErrDeleteFailed, wantCode: 1, wantErr: "❌ Failed to remove device."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.devices.removeErr = tt.err

			code, out, stderr := h.run(t, "remove-device", "7")

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

// --- connection ---

func TestConnectionFailurePrintsHints(t *testing.T) {
	h := newHarness()
	h.connErr = errors.New("dial tcp: connection refused")

	code, out, stderr := h.run(t, "list-devices")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "❌ Could not connect to the document store!")
	assert.Contains(t, stderr, "  dial tcp: connection refused")
	assert.Contains(t, stderr, "1. Check your internet connection")
	assert.Contains(t, stderr, "2. Verify the database is accessible")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness()

	code, _, stderr := h.run(t, "frobnicate")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}
