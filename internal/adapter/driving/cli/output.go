package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	hintColor    = color.New(color.FgCyan)
	secretColor  = color.New(color.FgYellow, color.Bold)
)

func success(msg string) string {
	return successColor.Sprint("✅ " + msg)
}

func failure(msg string) string {
	return errorColor.Sprint("❌ " + msg)
}

func hint(msg string) string {
	return hintColor.Sprint(msg)
}

// fail prints msg to stderr and returns an ExitError with status 1.
func fail(w io.Writer, msg string) error {
	fmt.Fprintln(w, failure(msg))
	return &ExitError{Code: 1}
}
