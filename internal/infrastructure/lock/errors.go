package lock

import "errors"

// ErrLockTimeout is returned when a lock could not be acquired in time
var ErrLockTimeout = errors.New("lock wait timed out")
