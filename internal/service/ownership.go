package service

import (
	"strings"

	"github.com/listenupapp/recall-server/internal/errors"
)

// OwnershipError reports tag ids that a user may not use. NotOwned holds
// ids of tags owned by someone else and NotExist holds ids with no tag at
// all. Both are sorted ascending and free of duplicates.
//
// It unwraps to a domain error: FORBIDDEN when every offending tag exists,
// NOT_FOUND as soon as one does not.
type OwnershipError struct {
	NotOwned []string
	NotExist []string
}

func (e *OwnershipError) Error() string {
	var parts []string
	if len(e.NotOwned) > 0 {
		parts = append(parts, "not owned by user: "+formatIDs(e.NotOwned))
	}
	if len(e.NotExist) > 0 {
		parts = append(parts, "do not exist: "+formatIDs(e.NotExist))
	}
	return strings.Join(parts, "; ")
}

// Code returns the domain error code the failure maps to.
func (e *OwnershipError) Code() errors.Code {
	if len(e.NotExist) > 0 {
		return errors.CodeNotFound
	}
	return errors.CodeForbidden
}

// Details returns the offending ids keyed the way API clients see them.
func (e *OwnershipError) Details() map[string][]string {
	return map[string][]string{
		"not_owned": orEmpty(e.NotOwned),
		"not_exist": orEmpty(e.NotExist),
	}
}

// Unwrap exposes the equivalent domain error so errors.Is and errors.As
// work against the errors package sentinels.
func (e *OwnershipError) Unwrap() error {
	return &errors.Error{
		Code:    e.Code(),
		Message: e.Error(),
		Details: e.Details(),
	}
}

func formatIDs(ids []string) string {
	return "[" + strings.Join(ids, ", ") + "]"
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
