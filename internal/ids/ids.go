// Package ids generates the identifiers used for albums, sessions and
// object keys. KSUIDs sort by creation time and carry 128 random bits.
package ids

import (
	"github.com/segmentio/ksuid"
)

func New() string {
	return ksuid.New().String()
}

// Valid reports whether s is a well-formed identifier produced by New.
func Valid(s string) bool {
	if len(s) != 27 {
		return false
	}
	_, err := ksuid.Parse(s)
	return err == nil
}
