package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for confirmations and secrets. Prompts go to out.
// When in is a terminal, secrets are read without echo; otherwise a single
// line is read, so secrets can be piped in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter creates a Prompter reading from in and prompting on out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// Confirm prints prompt and reads a yes/no answer. Anything other than
// "y" or "yes" (case-insensitive), including end of input, is a no.
func (p *Prompter) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)

	line, err := p.readLine()
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ReadSecret prints prompt and reads a secret. End of input yields "".
func (p *Prompter) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if p.fd >= 0 {
		secret, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(secret), nil
	}

	line, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return line, nil
}

// readLine returns one line without its terminator. End of input after a
// partial line returns that line; end of input with nothing read returns "".
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
