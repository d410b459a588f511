// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"

	"example.com/altitude/internal/domain"
)

const cursorPrefix = "day|"

// EncodeCursor serialises the resume day of a ledger listing to a token.
func EncodeCursor(day domain.Day) string {
	if day == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + string(day)))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means
// "from the beginning".
func DecodeCursor(token string) (domain.Day, error) {
	if strings.TrimSpace(token) == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return "", fmt.Errorf("invalid cursor format")
	}
	return domain.ParseDay(raw)
}
