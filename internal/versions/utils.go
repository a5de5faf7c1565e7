package versions

import (
	"crypto/rand"
	"encoding/hex"
)

// generates a random record ID (16 bytes, hex encoded)
func generateRecordID() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}
