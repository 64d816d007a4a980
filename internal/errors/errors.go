// SPDX-License-Identifier: AGPL-3.0-only
package errors

import (
	"fmt"
)

// NotFound creates a formatted "not found" error
func NotFound(resource, id string) error {
	return fmt.Errorf("%s not found: %s", resource, id)
}

// InvalidInput creates a formatted "invalid input" error
func InvalidInput(reason string) error {
	return fmt.Errorf("invalid input: %s", reason)
}

// Internal wraps an unexpected failure. The cause stays reachable through
// errors.Is / errors.As.
func Internal(err error) error {
	return fmt.Errorf("internal error: %w", err)
}

// Unavailable reports a failed call to an external service such as the LLM
// endpoint.
func Unavailable(service string, err error) error {
	return fmt.Errorf("%s unavailable: %w", service, err)
}

// AlreadyExists creates a formatted "already exists" error
func AlreadyExists(resource, id string) error {
	return fmt.Errorf("%s already exists: %s", resource, id)
}
