//go:build !unix

package arena

// Map falls back to a Go-managed aligned buffer where anonymous mappings
// are not available. The release function is a no-op.
func Map(size int) ([]byte, func() error, error) {
	return New(size), func() error { return nil }, nil
}
