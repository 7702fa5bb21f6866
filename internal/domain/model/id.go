package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a fresh correlation token.
func NewToken() string {
	return uuid.NewString()
}

// ControlID tags a control purpose with a session token: "<purpose>:<token>".
func ControlID(purpose, token string) string {
	return purpose + ":" + token
}

// SplitControlID reverses ControlID. ok is false when id carries no token.
func SplitControlID(id string) (purpose, token string, ok bool) {
	purpose, token, ok = strings.Cut(id, ":")
	if !ok || purpose == "" || token == "" {
		return "", "", false
	}
	return purpose, token, true
}
