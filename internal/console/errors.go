package console

import "errors"

// ErrEOF is returned when the console input ends while a capability is
// waiting on it.
var ErrEOF = errors.New("console: input closed")
