package challenge

import "errors"

// ErrInvalidConfig is returned by New for a non-positive duration.
var ErrInvalidConfig = errors.New("challenge: invalid configuration")
