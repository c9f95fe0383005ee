package announce

import (
	"errors"
	"fmt"
)

var (
	// ErrLabelTooLong is returned when a name component does not fit its length byte.
	ErrLabelTooLong = errors.New("announce: label longer than 255 bytes")

	// ErrEmptyLabel is returned for names with an empty leading or interior component.
	ErrEmptyLabel = errors.New("announce: empty label")

	// ErrInvalidName is returned when a record target cannot be encoded.
	ErrInvalidName = errors.New("announce: invalid dns name")

	// ErrInvalidAddress is returned when an A record target is not an IPv4 address.
	ErrInvalidAddress = errors.New("announce: invalid ipv4 address")

	// ErrInvalidSyntax is returned for key/value descriptors that cannot be parsed.
	ErrInvalidSyntax = errors.New("announce: invalid keyval syntax")

	// ErrUnknownKey is returned for descriptor keys other than name, cname, unique, ip and a.
	ErrUnknownKey = errors.New("announce: unknown key")

	// ErrMissingName is returned for descriptors without a name key.
	ErrMissingName = errors.New("announce: you need to specify the name key to register a record")

	errNilConfig    = errors.New("announce: config is nil")
	errNilDialer    = errors.New("announce: dialer is nil")
	errNilGroup     = errors.New("announce: entry group is nil")
	errBadKind      = errors.New("announce: unsupported record kind")
	errBadRetry     = errors.New("announce: retry interval must not be negative")
	errAlreadyBegun = errors.New("announce: session already announced")
)

// ConfigError reports a configuration entry that could not be resolved.
type ConfigError struct {
	Entry string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v in %q", e.Err, e.Entry)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SessionError reports a fatal failure of one announcement step.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("announce: %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
