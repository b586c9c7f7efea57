package raknet

import "fmt"

// errf wraps sentinel with a formatted message, the wrapping convention
// used throughout this package so callers can errors.Is/As against the
// package's sentinels (such as ErrInvalidIdentity) rather than matching
// strings.
func errf(sentinel error, format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, a...)...)
}
