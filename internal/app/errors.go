// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import "errors"

// ErrQuotaExceeded signals that the user already spent today's
// prediction allowance for their tier.
var ErrQuotaExceeded = errors.New("daily prediction quota exceeded")
