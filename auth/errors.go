package auth

import "fmt"

// ErrAuth indicates a failed or malformed token exchange. Nothing is
// persisted when it is returned.
type ErrAuth struct {
	Reason string
	Err    error
}

func (e ErrAuth) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e ErrAuth) Unwrap() error {
	return e.Err
}

// ErrTokenNotFound indicates a credential slot that was never initialized.
type ErrTokenNotFound struct {
	Slot string
	Err  error
}

func (e ErrTokenNotFound) Error() string {
	return fmt.Sprintf("auth: %s token not initialized", e.Slot)
}

func (e ErrTokenNotFound) Unwrap() error {
	return e.Err
}
