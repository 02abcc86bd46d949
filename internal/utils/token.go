package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateInvitationToken produces a random 64-character hex token. The token
// is the sole credential for signing, so it must be unguessable.
func GenerateInvitationToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
