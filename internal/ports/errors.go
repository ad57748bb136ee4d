package ports

import "errors"

// ErrNoSource means a dictionary has neither a source file nor a normalized
// text to build from. It survives the daemon socket as CodeNoSource.
var ErrNoSource = errors.New("no source to build from")
