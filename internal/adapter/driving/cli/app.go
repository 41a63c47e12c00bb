// Package cli is the command-line driving adapter: a cobra command tree over
// the key, credential and device services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/keypass/internal/domain/model"
)

// KeyManager is the master-key lifecycle surface the CLI drives.
type KeyManager interface {
	HasKey() (bool, error)
	Init(reset bool) error
}

// CredentialManager is the credential surface the CLI drives.
type CredentialManager interface {
	Add(ctx context.Context, name, user, secret string, tags []string) (string, error)
	Get(ctx context.Context, name, user string) (string, error)
	Delete(ctx context.Context, name, user string, force bool) error
}

// DeviceManager is the device surface the CLI drives.
type DeviceManager interface {
	Register(ctx context.Context, mac, ip, hostname string) (string, error)
	List(ctx context.Context) ([]model.Device, error)
	Remove(ctx context.Context, rawID string, force bool) error
}

// Services are the store-backed services, available once the document store is open.
type Services struct {
	Credentials CredentialManager
	Devices     DeviceManager
}

// Connector opens the document store and wires the store-backed services.
// It is called at most once per invocation, and only by commands that need the store.
type Connector func(ctx context.Context) (*Services, error)

// ExitError carries the exit status for a failure that has already been
// reported to the user.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// App is the CLI driving adapter.
type App struct {
	keys       KeyManager
	connect    Connector
	prompter   *Prompter
	holderName string
	logger     *slog.Logger

	services *Services
}

// NewApp creates an App. holderName names the secret holder in user-facing
// messages, e.g. "OS keyring".
func NewApp(
	keys KeyManager,
	connect Connector,
	prompter *Prompter,
	holderName string,
	logger *slog.Logger,
) *App {
	return &App{
		keys:       keys,
		connect:    connect,
		prompter:   prompter,
		holderName: holderName,
		logger:     logger,
	}
}

// Command builds the root command with every subcommand attached.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "keypass",
		Short:         "keypass - minimal secure credential and device store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger.Debug("command started", "command", cmd.Name(), "args", len(args))
		},
	}

	root.AddCommand(
		a.initCommand(),
		a.addCredCommand(),
		a.getCredCommand(),
		a.deleteCredCommand(),
		a.addDeviceCommand(),
		a.listDevicesCommand(),
		a.removeDeviceCommand(),
	)

	return root
}

// Run executes the command line in args and returns the process exit code.
// Failures not already reported by a command are printed to stderr.
func (a *App) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := a.Command()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}

	a.logger.Debug("command failed", "error", err)
	fmt.Fprintln(stderr, failure("Error: "+err.Error()))
	return 1
}

// stores returns the store-backed services, connecting on first use. A
// connection failure is reported with troubleshooting hints.
func (a *App) stores(cmd *cobra.Command) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}

	svc, err := a.connect(cmd.Context())
	if err != nil {
		a.logger.Error("store connection failed", "error", err)
		w := cmd.ErrOrStderr()
		fmt.Fprintln(w, failure("Could not connect to the document store!"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Error details:")
		fmt.Fprintf(w, "  %v\n", err)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Troubleshooting:")
		fmt.Fprintln(w, "1. Check your internet connection")
		fmt.Fprintln(w, "2. Verify the database is accessible")
		fmt.Fprintln(w)
		return nil, &ExitError{Code: 1}
	}

	a.services = svc
	return svc, nil
}
