package models

import (
	"encoding/base64"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns the base64 encoded SHA3-224 digest of data.
// Identical bytes produce the identical token across restarts.
func Fingerprint(data []byte) string {
	sum := sha3.Sum224(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
