package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/keypass/internal/application"
)

func (a *App) initCommand() *cobra.Command {
	var reset, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a master key and store it in the secret holder",
		Long: `Generates the master encryption key and stores it in the secret holder.
Run this once before any credential command.

Resetting replaces the key. Credentials encrypted under the old key can no
longer be decrypted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset && !force {
				exists, err := a.keys.HasKey()
				if err != nil {
					return err
				}
				if exists {
					ok, err := a.prompter.Confirm(cmd.Context(),
						"Resetting the master key makes every stored credential unreadable. Continue?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), failure("Reset cancelled."))
						return nil
					}
				}
			}

			err := a.keys.Init(reset)
			if errors.Is(err, application.ErrKeyExists) {
				fmt.Fprintln(cmd.OutOrStdout(), "Master key already exists. Use --reset to overwrite.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), success("Master key generated and stored in "+a.holderName+"."))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "reset existing key if present")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt for --reset")
	return cmd
}

func (a *App) addCredCommand() *cobra.Command {
	var tags []string
	var user string

	cmd := &cobra.Command{
		Use:   "add-cred NAME",
		Short: "Add an encrypted credential",
		Long:  "Adds an encrypted credential. You will be prompted for the secret.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			secret, err := a.prompter.ReadSecret(fmt.Sprintf("Secret for '%s': ", name))
			if err != nil {
				return err
			}

			id, err := svc.Credentials.Add(cmd.Context(), name, user, secret, tags)
			switch {
			case errors.Is(err, application.ErrEmptySecret):
				fmt.Fprintln(cmd.OutOrStdout(), "Empty secret - aborting.")
				return nil
			case err != nil:
				return a.credentialFailure(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved credential '%s' (id: %s)\n", name, id)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "username owner of this credential (defaults to OS user)")
	return cmd
}

func (a *App) getCredCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "get-cred NAME",
		Short: "Retrieve and decrypt a credential",
		Long:  "Retrieves and decrypts a credential by name. The secret is printed in plain text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			secret, err := svc.Credentials.Get(cmd.Context(), name, user)
			if err != nil {
				return a.credentialFailure(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "🔓 %s: %s\n", name, secretColor.Sprint(secret))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "username owner of the credential (defaults to OS user)")
	return cmd
}

func (a *App) deleteCredCommand() *cobra.Command {
	var user string
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-cred NAME",
		Short: "Delete a credential",
		Long:  "Deletes a credential by name. Asks for confirmation unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			err = svc.Credentials.Delete(cmd.Context(), name, user, force)
			switch {
			case errors.Is(err, application.ErrCancelled):
				fmt.Fprintln(cmd.OutOrStdout(), failure("Deletion cancelled."))
				return nil
			case errors.Is(err, application.ErrDeleteFailed):
				return fail(cmd.ErrOrStderr(), "Failed to delete credential.")
			case err != nil:
				return a.credentialFailure(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Credential '%s' deleted successfully.", name)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "username owner of the credential (defaults to OS user)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

// credentialFailure reports the credential errors shared by add, get and delete.
func (a *App) credentialFailure(cmd *cobra.Command, err error) error {
	w := cmd.ErrOrStderr()

	var exists *application.CredentialExistsError
	switch {
	case errors.Is(err, application.ErrKeyMissing):
		fmt.Fprintln(w, "No master key found. Run: "+hint("keypass init"))
		return &ExitError{Code: 1}
	case errors.As(err, &exists):
		return fail(w, fmt.Sprintf("Credential '%s' already exists for user '%s'.", exists.Name, exists.Owner))
	case errors.Is(err, application.ErrNotFound):
		return fail(w, "Credential not found.")
	case errors.Is(err, application.ErrDecryptionFailed):
		detail := strings.TrimPrefix(err.Error(), application.ErrDecryptionFailed.Error()+": ")
		return fail(w, "Failed to decrypt secret: "+detail)
	case errors.Is(err, application.ErrEmptyName):
		return fail(w, "Credential name must not be empty.")
	case errors.Is(err, application.ErrUnknownOwner):
		return fail(w, "Could not determine the OS user. Pass --user.")
	default:
		return err
	}
}

func (a *App) addDeviceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-device MAC IP [HOSTNAME]",
		Short: "Register a device",
		Long:  "Registers a device by MAC and IP address. The MAC is stored lowercase.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hostname string
			if len(args) == 3 {
				hostname = args[2]
			}

			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			id, err := svc.Devices.Register(cmd.Context(), args[0], args[1], hostname)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Device registered (id: %s)\n", id)
			return nil
		},
	}
}

func (a *App) listDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List registered devices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			devices, err := svc.Devices.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices registered.")
				return nil
			}
			for _, d := range devices {
				fmt.Fprintf(out, "- id=%s mac=%s ip=%s hostname=%s registered_at=%s\n",
					d.ID, d.MAC, d.IP, d.Hostname, d.RegisteredAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func (a *App) removeDeviceCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove-device ID",
		Short: "Remove a device by its id",
		Long:  "Removes a device by the id shown in list-devices. Asks for confirmation unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			svc, err := a.stores(cmd)
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			err = svc.Devices.Remove(cmd.Context(), id, force)
			switch {
			case errors.Is(err, application.ErrInvalidID):
				return fail(w, "Invalid device ID format.")
			case errors.Is(err, application.ErrNotFound):
				return fail(w, "Device not found.")
			case errors.Is(err, application.ErrCancelled):
				fmt.Fprintln(cmd.OutOrStdout(), failure("Removal cancelled."))
				return nil
			case errors.Is(err, application.ErrDeleteFailed):
				return fail(w, "Failed to remove device.")
			case err != nil:
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Device %s removed successfully.", id)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}
