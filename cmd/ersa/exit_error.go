// SPDX-License-Identifier: MPL-2.0

package cmd

// ExitError carries an explicit process exit code through the command
// layer. Execute unwraps it and exits with Code instead of the generic 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit error"
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
