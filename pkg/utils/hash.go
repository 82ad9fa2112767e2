package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns the md5 hex digest of input. Used for cache keys and
// stable per-URL segment ID prefixes; not for anything security-sensitive.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
