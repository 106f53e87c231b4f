package multivarka

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fatih/color"
)

var (
	// ErrContractViolation matches every *ContractViolation via errors.Is
	ErrContractViolation = errors.New("contract violation")

	// ErrNoDriver is wrapped in a *ConnectionError when no driver serves an address
	ErrNoDriver = errors.New("no driver registered")
)

// ContractViolation reports a chain method called in a state that does not allow it
type ContractViolation struct {
	Op     string
	Stage  string
	Reason string
}

func (e *ContractViolation) Error() string {
	msg := fmt.Sprintf("contract violation: %s not allowed after %s", e.Op, e.Stage)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}

// ConnectionError is returned when the driver could not connect.
// No terminal action ran.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ActionError is returned when the terminal action itself failed.
// Unwrap yields the driver error unmodified.
type ActionError struct {
	Action     string
	Collection string
	Err        error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Action, e.Collection, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// RedactAddress hides the password of a URL-shaped address
func RedactAddress(address string) string {
	u, err := url.Parse(address)
	if err != nil || u.User == nil {
		return address
	}
	return u.Redacted()
}

// FormatError renders err for terminal output
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	errorColor := color.New(color.FgRed, color.Bold)
	helpColor := color.New(color.FgYellow, color.Bold)

	var cv *ContractViolation
	var ce *ConnectionError
	var ae *ActionError

	switch {
	case errors.As(err, &cv):
		errorColor.Fprintf(&b, "Contract violation: ")
		fmt.Fprintf(&b, "%s is not allowed after %s\n", cv.Op, cv.Stage)
		if cv.Reason != "" {
			fmt.Fprintf(&b, "  %s\n", cv.Reason)
		}
		helpColor.Fprintf(&b, "  Help: ")
		b.WriteString("chains run collection -> where/condition... -> set... -> one action\n")

	case errors.As(err, &ce):
		errorColor.Fprintf(&b, "Connection failed: ")
		fmt.Fprintf(&b, "%s\n", ce.Address)
		fmt.Fprintf(&b, "  %v\n", ce.Err)
		if errors.Is(ce.Err, ErrNoDriver) {
			helpColor.Fprintf(&b, "  Help: ")
			fmt.Fprintf(&b, "registered schemes: %s\n", strings.Join(Drivers(), ", "))
		}

	case errors.As(err, &ae):
		errorColor.Fprintf(&b, "%s failed ", strings.ToUpper(ae.Action))
		locationColor := color.New(color.FgCyan)
		locationColor.Fprintf(&b, "[%s]", ae.Collection)
		fmt.Fprintf(&b, "\n  %v\n", ae.Err)

	default:
		errorColor.Fprintf(&b, "Error: ")
		fmt.Fprintf(&b, "%v\n", err)
	}

	return b.String()
}
