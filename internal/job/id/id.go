// Package id generates unique job identifiers.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Generate returns a new job ID of the form job-<unix seconds>-<8 hex chars>.
func Generate() string {
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is close to unheard of; degrade to the stamp
		return "job-" + stamp
	}
	return "job-" + stamp + "-" + hex.EncodeToString(buf)
}
