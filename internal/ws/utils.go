package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"slices"
	"strings"

	"codeberg.org/codeshare/server/internal/logger"
)

func getAllowedWebSocketOrigins() []string {
	if envOrigins := os.Getenv("ALLOWED_ORIGINS"); envOrigins != "" {
		origins := strings.Split(envOrigins, ",")

		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}

		return origins
	}

	return []string{}
}

func CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		return true
	}

	if origin == "" {
		logger.Warn("websocket connection with no origin header")
		return false
	}

	// production: validate against allowed origins
	allowedOrigins := getAllowedWebSocketOrigins()

	if len(allowedOrigins) == 0 {
		logger.Warn("websocket origin rejected - ALLOWED_ORIGINS not configured",
			"origin", origin,
		)
		return false
	}

	if slices.Contains(allowedOrigins, origin) {
		return true
	}

	logger.Warn("websocket origin rejected - not in allowed origins",
		"origin", origin,
		"allowed_origins", allowedOrigins,
	)

	return false
}

// generates a random connection identifier (16 bytes, hex encoded)
func GenerateClientID() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

// generates a random session identifier. 16 bytes of entropy makes a
// collision between two creations practically impossible, unlike the
// wall-clock identifiers this replaces.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}
