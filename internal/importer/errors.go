package importer

import "errors"

// Typed errors of the importer. ImportFile reports failures with
// ErrFileFormat, ErrStore and ErrCancelled; nothing in this package
// returns ErrUnknownProvider (the registry reports unknown provider names
// with its own registry.ErrUnknownProvider).
var (
	ErrUnknownProvider = errors.New("importer: unknown provider")
	ErrFileFormat      = errors.New("importer: file root is neither object nor array")
	ErrStore           = errors.New("importer: store write failed")
	ErrCancelled       = errors.New("importer: cancelled")
)
