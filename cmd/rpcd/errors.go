package main

import "errors"

// ErrListenFailed wraps a failure to bind the listening socket,
// distinct from a per-connection error that the worker model already
// isolates to a single client.
var ErrListenFailed = errors.New("failed to start listener")

// FormatUserError renders err for the terminal without a Go-ism
// "error:" prefix duplicated by callers.
func FormatUserError(err error) string {
	return err.Error()
}
