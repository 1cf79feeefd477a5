// internal/domain/errors.go
package domain

import "errors"

// ErrNotFound is returned when the backend reports HTTP 404 for a delivery
// or run. Callers can check for it using errors.Is.
var ErrNotFound = errors.New("not found")
