package store

import "errors"

// Sentinel errors surfaced by the store (spec §4.1 "Errors").
var (
	ErrNotFound         = errors.New("store: not found")
	ErrIntegrity        = errors.New("store: integrity error")
	ErrChecksumMismatch = errors.New("store: checksum mismatch")
)
