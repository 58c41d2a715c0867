package persistence

import "errors"

// ErrCorrupt is returned when stored content cannot be decoded.
var ErrCorrupt = errors.New("persistence: stored content is corrupt")
