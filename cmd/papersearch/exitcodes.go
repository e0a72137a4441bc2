// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"

	"github.com/pdiddy/papersearch/internal/scopus"
)

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure, failed downloads)
	ExitConfigError = 2 // Configuration error (missing API key, unreadable config)
	ExitDataError   = 3 // Data error (missing or malformed snapshot)
)

// errSilent marks a failure that has already been reported to the user.
var errSilent = errors.New("already reported")

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, scopus.ErrMissingAPIKey) {
		return ExitConfigError
	}
	return ExitError
}
