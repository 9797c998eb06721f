// Package hash computes the content digest used for upload deduplication.
// The digest is taken over the exact bytes written to the object store, so a
// dedup hit always refers to content that is byte-identical to what was stored.
package hash

import (
	"crypto/sha256"
	"fmt"
)

func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
