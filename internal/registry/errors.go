package registry

import "errors"

// ErrUnknownProvider is returned when a caller names a provider the
// registry has no parser for.
var ErrUnknownProvider = errors.New("registry: unknown provider")
