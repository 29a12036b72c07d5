package secret

import "errors"

// ErrInvalidConfig is returned by New when the frame cannot fit the
// region or the configured length is outside 1..255.
var ErrInvalidConfig = errors.New("secret: invalid configuration")
