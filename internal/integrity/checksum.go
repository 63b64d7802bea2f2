// Package integrity computes the content checksum stamped into dataset
// metadata. The hash is a fast, non-cryptographic corruption hint; a
// mismatch is reported as a warning and never blocks loading.
package integrity

import "fmt"

// Checksum returns a hex-encoded 32-bit rolling hash of payload. The same
// payload always hashes to the same value on every platform.
func Checksum(payload []byte) string {
	var h int32
	for _, b := range payload {
		h = (h << 5) - h + int32(b)
	}
	return fmt.Sprintf("%08x", uint32(h))
}

// Verify reports whether payload hashes to want. An empty want (metadata
// written before checksums existed) always verifies.
func Verify(payload []byte, want string) bool {
	if want == "" {
		return true
	}
	return Checksum(payload) == want
}
