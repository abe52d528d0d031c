// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrValidation indicates malformed or empty client input.
var ErrValidation = errors.New("validation failed")
