// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging provides the structured logger every component
// accepts, thinly wrapping zap the way the teacher's own log package
// thinly wraps its internal logger.
package logging

import "go.uber.org/zap"

// Logger is the structured logging surface used throughout this module.
type Logger = *zap.Logger

// NewNoOp returns a logger that discards everything, for tests and for
// callers that have not configured logging.
func NewNoOp() Logger { return zap.NewNop() }

// NewProduction returns zap's default JSON production logger.
func NewProduction() (Logger, error) { return zap.NewProduction() }

// OrDefault returns l if non-nil, otherwise a no-op logger.
func OrDefault(l Logger) Logger {
	if l == nil {
		return NewNoOp()
	}
	return l
}
