package api

import (
	"strings"

	domainerrors "github.com/listenupapp/recall-server/internal/errors"
)

// UserIDHeader names the calling user. Authentication happens in front of
// this server.
const UserIDHeader = "X-User-ID"

// requireUser returns the trimmed user id or a VALIDATION error.
func requireUser(header string) (string, error) {
	userID := strings.TrimSpace(header)
	if userID == "" {
		return "", toAPIError(domainerrors.Validation(UserIDHeader + " header is required"))
	}
	return userID, nil
}

// orEmpty keeps list fields serialized as [] instead of null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
