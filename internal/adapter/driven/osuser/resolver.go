// Package osuser resolves the invoking OS account name.
package osuser

import (
	"errors"
	"os"
	"os/user"
	"strings"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserResolver = (*Resolver)(nil)

// ErrUnknownUser is returned when neither the user database nor the
// environment names the current account.
var ErrUnknownUser = errors.New("cannot determine current OS user")

// Resolver reads the account from the user database, falling back to the
// login environment variables when the lookup fails.
type Resolver struct {
	current func() (*user.User, error)
	getenv  func(string) string
}

// NewResolver creates a Resolver backed by os/user and os.Getenv.
func NewResolver() *Resolver {
	return &Resolver{current: user.Current, getenv: os.Getenv}
}

// CurrentUser returns the login name of the invoking account.
func (r *Resolver) CurrentUser() (string, error) {
	if u, err := r.current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return strings.TrimSpace(u.Username), nil
	}

	for _, key := range []string{"LOGNAME", "USER", "LNAME", "USERNAME"} {
		if v := strings.TrimSpace(r.getenv(key)); v != "" {
			return v, nil
		}
	}
	return "", ErrUnknownUser
}
